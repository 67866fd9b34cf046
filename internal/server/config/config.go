// Package config handles configuration for the receiver daemon, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the ShareThings receiver daemon.
//
// Fields:
//   - SessionID: the shared session this receiver joins.
//   - SenderName: display name announced with outbound content.
//   - NATSURL: session feed endpoint.
//   - SnapshotPath: SQLite file persisting the metadata store across restarts.
//   - CacheDir: directory for rendered binary artifacts.
//   - MetricsAddr: bind address for the Prometheus /metrics endpoint.
//   - SweepInterval: period of the orphaned-fragment sweep.
//   - ReconcileIDs: enable best-effort prefix reconciliation of fragment ids.
//   - S3AccessKey / S3SecretKey / S3Bucket / S3Region / S3BaseEndpoint:
//     object storage settings for large-external content.
type Config struct {
	SessionID      string
	SenderName     string
	NATSURL        string
	SnapshotPath   string
	CacheDir       string
	MetricsAddr    string
	SweepInterval  time.Duration
	ReconcileIDs   bool
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.SessionID = "default"
	c.SenderName = "receiver"
	c.NATSURL = "nats://127.0.0.1:4222"
	c.SnapshotPath = "sharethings.db"
	c.CacheDir = "./cache"
	c.MetricsAddr = ":9100"
	c.SweepInterval = 1 * time.Minute
	c.ReconcileIDs = false
	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.S3Bucket = "sharethings"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
