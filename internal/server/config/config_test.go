package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"sharethingsd"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestLoadConfig_Defaults(t *testing.T) {
	withArgs(t)
	cfg := LoadConfig()

	assert.Equal(t, "default", cfg.SessionID)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.False(t, cfg.ReconcileIDs)
}

func TestLoadConfig_Flags(t *testing.T) {
	withArgs(t,
		"-s", "team-42",
		"-n", "alice",
		"-u", "nats://nats.internal:4222",
		"-i", "30",
		"-r",
		"-b", "blobs")

	cfg := LoadConfig()

	assert.Equal(t, "team-42", cfg.SessionID)
	assert.Equal(t, "alice", cfg.SenderName)
	assert.Equal(t, "nats://nats.internal:4222", cfg.NATSURL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.True(t, cfg.ReconcileIDs)
	assert.Equal(t, "blobs", cfg.S3Bucket)
	// untouched fields keep their defaults
	assert.Equal(t, ":9100", cfg.MetricsAddr)
}

func TestLoadConfig_JsonOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"session_id": "from-json",
		"sweep_interval": "90s",
		"reconcile_ids": true
	}`), 0o600))

	withArgs(t, "-c", path)
	cfg := LoadConfig()

	assert.Equal(t, "from-json", cfg.SessionID)
	assert.Equal(t, 90*time.Second, cfg.SweepInterval)
	assert.True(t, cfg.ReconcileIDs)
	// fields absent from the file keep their defaults
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
}

func TestLoadConfig_FlagsOverrideJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"session_id": "from-json"}`), 0o600))

	withArgs(t, "-c", path, "-s", "from-flag")
	cfg := LoadConfig()

	assert.Equal(t, "from-flag", cfg.SessionID)
}
