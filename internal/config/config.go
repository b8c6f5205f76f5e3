package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Config holds client-side runtime configuration. Values come from the
// config file, overridden by HUMBET_* environment variables, overridden by
// command-line flags (applied by the CLI layer).
type Config struct {
	APIBaseURL     string `json:"api_base_url"`
	StateDir       string `json:"state_dir"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	if p := os.Getenv("HUMBET_CONFIG_PATH"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "humbet-config.json"
	}
	return filepath.Join(home, ".humbet", "config.json")
}

// Load reads configuration from configPath, falling back to defaults for a
// missing file. Environment overrides are applied last.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		APIBaseURL:     "http://localhost:8000",
		StateDir:       "~/.humbet",
		TimeoutSeconds: 30,
	}

	if configPath == "" {
		configPath = DefaultPath()
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("HUMBET_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("HUMBET_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}

	return cfg, nil
}
