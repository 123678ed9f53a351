package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "256m", cfg.DefaultMemoryLimit)
	assert.Equal(t, 60, cfg.DefaultTimeoutSeconds)
	assert.Equal(t, 600, cfg.MaxTimeoutSeconds)
	assert.Equal(t, "none", cfg.DefaultNetworkMode)
	assert.Equal(t, "bridge", cfg.BrowserNetworkMode)
	assert.True(t, cfg.QueueOnBusy)
}

func TestLoadConfigFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: \"9090\"\nsandbox_image: custom:1\ndefault_timeout_seconds: 30\n",
	), 0644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "custom:1", cfg.SandboxImage)
	assert.Equal(t, 30, cfg.DefaultTimeoutSeconds)
	// Untouched keys keep their defaults.
	assert.Equal(t, "256m", cfg.DefaultMemoryLimit)
}

func TestLoadConfigEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\n"), 0644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoadConfigRejectsUnknownWorkspaceMode(t *testing.T) {
	t.Setenv("WORKSPACE_MODE", "nfs")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsMaxBelowDefaultTimeout(t *testing.T) {
	t.Setenv("DEFAULT_TIMEOUT_SECONDS", "120")
	t.Setenv("MAX_TIMEOUT_SECONDS", "60")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigParsesCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}
