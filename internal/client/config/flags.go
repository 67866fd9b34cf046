package config

import (
	"flag"
	"os"

	"github.com/jsbattig/share-things-sub002/internal/flagx"
)

// parseFlags populates selected CLI Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-s string   session id to join
//	-n string   sender display name
//	-u string   NATS URL
//	-d string   rendered-artifact cache directory
//	-a string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-s", "-n", "-u", "-d", "-a", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.SessionID, "s", config.SessionID, "session id to join")
	fs.StringVar(&config.SenderName, "n", config.SenderName, "sender display name")
	fs.StringVar(&config.NATSURL, "u", config.NATSURL, "NATS URL")
	fs.StringVar(&config.CacheDir, "d", config.CacheDir, "artifact cache directory")
	fs.StringVar(&config.S3AccessKey, "a", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
