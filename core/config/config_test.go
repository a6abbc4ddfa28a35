package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 500, cfg.Server.FetchLimit)
	assert.Equal(t, []string{"wss://relay.damus.io"}, cfg.Relay.URLList())
	assert.Equal(t, 15, cfg.Relay.TimeoutSeconds)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RELAY_URLS", "wss://one.example, wss://two.example,")
	t.Setenv("RELAY_TIMEOUT_SECONDS", "3")
	t.Setenv("DATABASE_DRIVER", "mysql")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"wss://one.example", "wss://two.example"}, cfg.Relay.URLList())
	assert.Equal(t, 3, cfg.Relay.TimeoutSeconds)
	assert.Equal(t, "mysql", cfg.Database.Driver)
}
