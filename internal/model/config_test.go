package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, cfg.Store.Backend)
	assert.Equal(t, "task5", cfg.Store.Remote.Collection)
	assert.Equal(t, 30, cfg.Store.Remote.TimeoutSec)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigRemoteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `store:
  backend: Remote
  remote:
    base_url: http://localhost:8085
    project_id: p1
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendRemote, cfg.Store.Backend)
	assert.Equal(t, "http://localhost:8085", cfg.Store.Remote.BaseURL)
	assert.Equal(t, "p1", cfg.Store.Remote.ProjectID)
	assert.Equal(t, "task5", cfg.Store.Remote.Collection)
}

func TestLoadConfigRejectsRemoteWithoutURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: remote\n"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultAppConfig()
	cfg.Store.Local.Path = "/tmp/tasks.db"
	cfg.Log.Level = "debug"

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tasks.db", loaded.Store.Local.Path)
	assert.Equal(t, "debug", loaded.Log.Level)
}

func TestSaveConfigWritesOnlyStoreAndLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveConfig(path, defaultAppConfig()))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "store:")
	assert.Contains(t, string(body), "log:")
	assert.NotContains(t, string(body), "display")
}
