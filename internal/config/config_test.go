package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults tests the zero-file case.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Equal(t, "~/.humbet", cfg.StateDir)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
}

// TestLoad_FileOverridesDefaults tests that file values win over defaults
// while unspecified fields keep theirs.
func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api_base_url":"https://humbet.example.com","timeout_seconds":60}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://humbet.example.com", cfg.APIBaseURL)
	assert.Equal(t, "~/.humbet", cfg.StateDir)
	assert.Equal(t, 60*time.Second, cfg.Timeout())
}

// TestLoad_EnvOverridesFile tests the precedence chain: environment beats
// the config file.
func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api_base_url":"https://from-file.example.com"}`), 0600))

	t.Setenv("HUMBET_API_BASE_URL", "https://from-env.example.com")
	t.Setenv("HUMBET_STATE_DIR", "/var/lib/humbet")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://from-env.example.com", cfg.APIBaseURL)
	assert.Equal(t, "/var/lib/humbet", cfg.StateDir)
}

// TestLoad_MalformedFile tests that a broken config file is a hard error
// rather than silently falling back to defaults.
func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api_base_url": `), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

// TestDefaultPath_EnvOverride tests the config path override hook.
func TestDefaultPath_EnvOverride(t *testing.T) {
	t.Setenv("HUMBET_CONFIG_PATH", "/etc/humbet/config.json")
	assert.Equal(t, "/etc/humbet/config.json", DefaultPath())
}
