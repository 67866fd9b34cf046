// Package config handles configuration for the CLI client, including
// defaults, JSON overlay, and command-line flags.
package config

// Config holds runtime settings for the ShareThings CLI.
//
// Fields:
//   - SessionID: the shared session to join.
//   - SenderName: display name announced with outbound content.
//   - NATSURL: session feed endpoint.
//   - CacheDir: directory for rendered binary artifacts.
//   - S3AccessKey / S3SecretKey / S3Bucket / S3Region / S3BaseEndpoint:
//     object storage settings for large-external uploads. Leave the base
//     endpoint empty to disable the large-external path.
type Config struct {
	SessionID      string
	SenderName     string
	NATSURL        string
	CacheDir       string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
}

// LoadDefaults populates Config with sensible development defaults.
func (c *Config) LoadDefaults() {
	c.SessionID = "default"
	c.SenderName = "anonymous"
	c.NATSURL = "nats://127.0.0.1:4222"
	c.CacheDir = "./cache"
	c.S3Region = "us-east-1"
	c.S3Bucket = "sharethings"
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
