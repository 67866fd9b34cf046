package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"sharethings"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestLoadConfig_Defaults(t *testing.T) {
	withArgs(t)
	cfg := LoadConfig()

	assert.Equal(t, "default", cfg.SessionID)
	assert.Equal(t, "anonymous", cfg.SenderName)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	assert.Empty(t, cfg.S3BaseEndpoint)
}

func TestLoadConfig_Flags(t *testing.T) {
	withArgs(t, "-s", "team-42", "-n", "bob", "-e", "http://127.0.0.1:9000/")
	cfg := LoadConfig()

	assert.Equal(t, "team-42", cfg.SessionID)
	assert.Equal(t, "bob", cfg.SenderName)
	assert.Equal(t, "http://127.0.0.1:9000/", cfg.S3BaseEndpoint)
}

func TestLoadConfig_JsonThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"session_id": "from-json", "sender_name": "carol"}`), 0o600))

	withArgs(t, "-c", path, "-s", "from-flag")
	cfg := LoadConfig()

	assert.Equal(t, "from-flag", cfg.SessionID)
	assert.Equal(t, "carol", cfg.SenderName)
}
