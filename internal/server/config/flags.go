package config

import (
	"flag"
	"os"
	"time"

	"github.com/jsbattig/share-things-sub002/internal/flagx"
)

// parseFlags populates selected daemon Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-s string   session id to join
//	-n string   sender display name
//	-u string   NATS URL (e.g., "nats://127.0.0.1:4222")
//	-o string   snapshot SQLite file path
//	-d string   rendered-artifact cache directory
//	-m string   metrics bind address (e.g., ":9100")
//	-i int      orphan sweep interval, seconds
//	-r          enable fragment id prefix reconciliation
//	-a string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - The sweep interval is accepted as an integer in seconds and then
//     converted to a time.Duration value.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-s", "-n", "-u", "-o", "-d", "-m", "-i", "-r", "-a", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.SessionID, "s", config.SessionID, "session id to join")
	fs.StringVar(&config.SenderName, "n", config.SenderName, "sender display name")
	fs.StringVar(&config.NATSURL, "u", config.NATSURL, "NATS URL")
	fs.StringVar(&config.SnapshotPath, "o", config.SnapshotPath, "snapshot file path")
	fs.StringVar(&config.CacheDir, "d", config.CacheDir, "artifact cache directory")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics bind address")

	sweepInterval := fs.Int("i", int(config.SweepInterval.Seconds()), "sweep interval (in seconds)")
	fs.BoolVar(&config.ReconcileIDs, "r", config.ReconcileIDs, "enable fragment id reconciliation")

	fs.StringVar(&config.S3AccessKey, "a", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SweepInterval = time.Duration(*sweepInterval) * time.Second
}
