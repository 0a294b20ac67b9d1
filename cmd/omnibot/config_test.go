package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Store)
}

func TestLoadConfigFile(t *testing.T) {

	path := filepath.Join(t.TempDir(), "omnibot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9090"
log_level: debug
store: "file:state.db"
platform: marusia
platforms:
  telegram:
    token: tg-token
  vk:
    confirmation: code-1
`), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "file:state.db", cfg.Store)
	assert.Equal(t, "marusia", cfg.Platform)
	assert.Equal(t, "tg-token", cfg.Platforms["telegram"]["token"])
	assert.Equal(t, "code-1", cfg.Platforms["vk"]["confirmation"])
}

func TestLoadConfigEnvOverride(t *testing.T) {

	path := filepath.Join(t.TempDir(), "omnibot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o600))

	t.Setenv("OMNIBOT_LOG_LEVEL", "debug")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigMissingFile(t *testing.T) {

	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
