package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	// 空配置文件时默认值全部生效
	path := filepath.Join(t.TempDir(), "localizer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.StateBackend)
	assert.Equal(t, ".localizer", cfg.StateDir)
	assert.Equal(t, "en", cfg.BaseLanguage)
	assert.Equal(t, "translations", cfg.TranslationsDir)
	assert.NotEmpty(t, cfg.PlaceholderPatterns)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localizer.yaml")
	content := `
namespace: common
base_language: en-US
state_backend: sqlite
languages:
  - de
  - fr
store:
  endpoint: https://store.example.com
  project_id: proj-1
placeholder_patterns:
  - "^text\\b"
  - "^label\\b"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "common", cfg.Namespace)
	assert.Equal(t, "sqlite", cfg.StateBackend)
	assert.Equal(t, []string{"de", "fr"}, cfg.Languages)
	assert.Equal(t, "https://store.example.com", cfg.Store.Endpoint)
	assert.Len(t, cfg.PlaceholderPatterns, 2)
	// 默认值仍然生效
	assert.Equal(t, 30, cfg.Store.Timeout)
}

func TestLoadConfigInvalidBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localizer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("state_backend: redis\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state_backend")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localizer.yaml")

	in := NewDefaultConfig()
	in.Namespace = "checkout"
	in.Store.ProjectID = "proj-9"
	require.NoError(t, SaveConfig(in, path))

	out, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "checkout", out.Namespace)
	assert.Equal(t, "proj-9", out.Store.ProjectID)
}

func TestStatePath(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, filepath.Join(".localizer", "state.json"), cfg.StatePath())

	cfg.StateBackend = "sqlite"
	assert.Equal(t, filepath.Join(".localizer", "state.db"), cfg.StatePath())
}

func TestStoreClientConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Endpoint = "https://store.example.com"
	cfg.Store.ProjectID = "proj-1"
	cfg.Store.WriteKey = "wk"
	cfg.Store.Timeout = 10

	clientConfig := cfg.StoreClientConfig()
	assert.Equal(t, "https://store.example.com", clientConfig.Endpoint)
	assert.Equal(t, "proj-1", clientConfig.ProjectID)
	assert.Equal(t, "wk", clientConfig.WriteKey)
	assert.Equal(t, 10*time.Second, clientConfig.Timeout)
	assert.Equal(t, 3, clientConfig.MaxRetries)
}

func TestTranslationFile(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, filepath.Join("translations", "de.json"), cfg.TranslationFile("de", "json"))
}
