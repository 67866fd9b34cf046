// Package cli implements the interactive ShareThings client: it joins a
// session, prints content shared by other participants, and sends notes and
// files into the session.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/jsbattig/share-things-sub002/internal/assembler"
	"github.com/jsbattig/share-things-sub002/internal/cache"
	"github.com/jsbattig/share-things-sub002/internal/client/config"
	"github.com/jsbattig/share-things-sub002/internal/common"
	"github.com/jsbattig/share-things-sub002/internal/cryptox"
	"github.com/jsbattig/share-things-sub002/internal/logging"
	"github.com/jsbattig/share-things-sub002/internal/models"
	"github.com/jsbattig/share-things-sub002/internal/progress"
	"github.com/jsbattig/share-things-sub002/internal/reclaimer"
	"github.com/jsbattig/share-things-sub002/internal/services"
	"github.com/jsbattig/share-things-sub002/internal/storage/diskcache"
	"github.com/jsbattig/share-things-sub002/internal/storage/s3store"
	"github.com/jsbattig/share-things-sub002/internal/transport"
)

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(c *config.Config) (*App, error) {
	sl := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger := logging.NewSlogLogger(sl)
	return &App{config: c, logger: logger}, nil
}

// consoleSink prints incoming content to stdout as it is assembled.
type consoleSink struct{}

func (consoleSink) Present(ctx context.Context, a *models.RenderedArtifact) error {
	if a.IsBinary() {
		fmt.Printf("\n[%s] shared %s (%s, %d bytes), cached as %q\n",
			a.SenderName, a.ContentType, a.MimeType, a.Size, a.StorageKey)
	} else {
		fmt.Printf("\n[%s] shared:\n%s\n", a.SenderName, a.Text)
	}
	return nil
}

// AllFragmentsProcessed treats everything as processed: the CLI displays
// content the moment it assembles, so orphaned fragments are always safe to
// sweep.
func (consoleSink) AllFragmentsProcessed(string) bool { return true }

// Run joins the session and hands control to the command loop.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := app.config
	logger := app.logger

	passphrase, err := GetPassphrase(os.Stdout)
	if err != nil {
		return fmt.Errorf("passphrase entry: %w", err)
	}
	key := cryptox.DeriveSessionKey(passphrase, []byte(cfg.SessionID))
	common.WipeByteArray(passphrase)

	contentCache, err := cache.NewContentCache(logger)
	if err != nil {
		return err
	}
	tracker := progress.NewTracker(contentCache, logger)

	blobs, err := diskcache.New(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("cache dir init: %w", err)
	}

	sink := consoleSink{}
	engine, err := assembler.NewEngine(contentCache, tracker,
		func() []byte { return key }, sink, blobs, logger)
	if err != nil {
		return err
	}

	rec, err := reclaimer.New(contentCache, tracker, sink, engine, logger)
	if err != nil {
		return err
	}

	nc, err := nats.Connect(cfg.NATSURL, nats.Name("sharethings-cli"))
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Drain()

	sender := transport.NewSender(nc, cfg.SessionID, logger)

	opts := []services.Option{services.WithPublisher(sender)}
	if cfg.S3BaseEndpoint != "" {
		s3, err := s3store.New(ctx, s3store.Config{
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
		if err != nil {
			return fmt.Errorf("s3 init: %w", err)
		}
		opts = append(opts, services.WithPresigner(s3))
	}

	service := services.NewContentService(uuid.NewString(), cfg.SenderName,
		contentCache, tracker, engine, rec, func() []byte { return key },
		logger, opts...)

	receiver := transport.NewReceiver(nc, cfg.SessionID, service, logger)
	if err := receiver.Start(ctx); err != nil {
		return fmt.Errorf("session subscribe: %w", err)
	}
	defer receiver.Stop()

	go rec.Run(ctx)

	fmt.Printf("Joined session %q as %q.\n", cfg.SessionID, cfg.SenderName)
	return app.commandLoop(ctx, service)
}
