package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jsbattig/share-things-sub002/internal/services"
)

const commandHelp = `Commands:
  note           share a multi-line text note
  file <path>    share a file
  remove <id>    remove a shared content item
  quit           leave the session`

func (app *App) commandLoop(ctx context.Context, svc *services.ContentService) error {
	return app.runCommands(ctx, svc, bufio.NewReader(os.Stdin), os.Stdout)
}

func (app *App) runCommands(ctx context.Context, svc *services.ContentService,
	reader *bufio.Reader, w io.Writer) error {

	fmt.Fprintln(w, commandHelp)

	for {
		line, err := GetSimpleText(reader, "", w)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "":
			continue

		case "note":
			text, err := GetMultiline(reader, "Note text:", w)
			if err != nil {
				return err
			}
			if text == "" {
				fmt.Fprintln(w, "nothing to send")
				continue
			}
			id, err := svc.Send(ctx, []byte(text), services.SendOptions{})
			if err != nil {
				fmt.Fprintf(w, "send failed: %v\n", err)
				continue
			}
			fmt.Fprintf(w, "shared note %s\n", id)

		case "file":
			if arg == "" {
				fmt.Fprintln(w, "usage: file <path>")
				continue
			}
			data, err := os.ReadFile(arg)
			if err != nil {
				fmt.Fprintf(w, "read failed: %v\n", err)
				continue
			}
			id, err := svc.Send(ctx, data, services.SendOptions{})
			if err != nil {
				fmt.Fprintf(w, "send failed: %v\n", err)
				continue
			}
			fmt.Fprintf(w, "shared file %s (%d bytes)\n", id, len(data))

		case "remove":
			if arg == "" {
				fmt.Fprintln(w, "usage: remove <id>")
				continue
			}
			svc.RemoveContent(ctx, arg)
			fmt.Fprintf(w, "removed %s\n", arg)

		case "quit", "exit":
			return nil

		case "help":
			fmt.Fprintln(w, commandHelp)

		default:
			fmt.Fprintf(w, "unknown command %q (try \"help\")\n", cmd)
		}
	}
}
