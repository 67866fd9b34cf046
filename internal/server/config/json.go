package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/jsbattig/share-things-sub002/internal/flagx"
	"github.com/jsbattig/share-things-sub002/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its non-zero fields are copied into the runtime
// Config struct which uses time.Duration.
type JsonConfig struct {
	SessionID      string         `json:"session_id"`
	SenderName     string         `json:"sender_name"`
	NATSURL        string         `json:"nats_url"`
	SnapshotPath   string         `json:"snapshot_path"`
	CacheDir       string         `json:"cache_dir"`
	MetricsAddr    string         `json:"metrics_addr"`
	SweepInterval  timex.Duration `json:"sweep_interval"`
	ReconcileIDs   bool           `json:"reconcile_ids"`
	S3AccessKey    string         `json:"s3_access_key"`
	S3SecretKey    string         `json:"s3_secret_key"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path is taken from the -c or -config command-line flags; when
// neither is set, no file is loaded. Only fields present (non-zero) in the
// file override the current values, so the file can be partial. If the file
// cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.SessionID != "" {
		config.SessionID = c.SessionID
	}
	if c.SenderName != "" {
		config.SenderName = c.SenderName
	}
	if c.NATSURL != "" {
		config.NATSURL = c.NATSURL
	}
	if c.SnapshotPath != "" {
		config.SnapshotPath = c.SnapshotPath
	}
	if c.CacheDir != "" {
		config.CacheDir = c.CacheDir
	}
	if c.MetricsAddr != "" {
		config.MetricsAddr = c.MetricsAddr
	}
	if c.SweepInterval.Duration > 0 {
		config.SweepInterval = time.Duration(c.SweepInterval.Duration)
	}
	if c.ReconcileIDs {
		config.ReconcileIDs = true
	}
	if c.S3AccessKey != "" {
		config.S3AccessKey = c.S3AccessKey
	}
	if c.S3SecretKey != "" {
		config.S3SecretKey = c.S3SecretKey
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
}
