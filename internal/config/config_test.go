package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "./chatrelay.db", cfg.Database.Path)
	assert.Equal(t, 100, cfg.Chat.BufferCapacity)
	assert.Equal(t, 50, cfg.Chat.QueryLimit)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingPeriod)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log_level: debug
http:
  port: 9090
database:
  path: /tmp/test.db
chat:
  buffer_capacity: 200
  query_limit: 25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, 200, cfg.Chat.BufferCapacity)
	assert.Equal(t, 25, cfg.Chat.QueryLimit)
	// untouched keys keep their defaults
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.HTTP.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Chat.BufferCapacity = -1
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Chat.QueryLimit = cfg.Chat.BufferCapacity + 1
	assert.Error(t, cfg.Validate(), "query limit cannot exceed buffer capacity")

	cfg = base()
	cfg.WebSocket.PingPeriod = 0
	assert.Error(t, cfg.Validate())
}
