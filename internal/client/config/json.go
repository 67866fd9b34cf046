package config

import (
	"encoding/json"
	"os"

	"github.com/jsbattig/share-things-sub002/internal/flagx"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. After unmarshalling, its non-zero fields are copied into
// the runtime Config struct, so a partial file works.
type JsonConfig struct {
	SessionID      string `json:"session_id"`
	SenderName     string `json:"sender_name"`
	NATSURL        string `json:"nats_url"`
	CacheDir       string `json:"cache_dir"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path is taken from the -c or -config flags; when
// neither is set, no file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
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
	if c.CacheDir != "" {
		config.CacheDir = c.CacheDir
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
