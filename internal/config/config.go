// Package config loads engine configuration from a YAML file with
// environment-variable overrides for deployment-specific settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the engine configuration.
type Config struct {
	// Analyst is the external analysis service.
	Analyst struct {
		BaseURL           string        `yaml:"base_url"`
		Timeout           time.Duration `yaml:"timeout"`
		RequestsPerMinute int           `yaml:"requests_per_minute"`
	} `yaml:"analyst"`

	// Models for the AI-assisted parse tier.
	Models struct {
		Primary  string `yaml:"primary"`
		Fallback string `yaml:"fallback"`
	} `yaml:"models"`

	// Cache settings.
	Cache struct {
		RedisAddr string        `yaml:"redis_addr"`
		TTL       time.Duration `yaml:"ttl"`
		Capacity  int           `yaml:"capacity"`
	} `yaml:"cache"`

	// JournalPath is the SQLite run journal location. Empty disables it.
	JournalPath string `yaml:"journal_path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Analyst.BaseURL = "http://localhost:8001"
	cfg.Analyst.Timeout = 120 * time.Second
	cfg.Analyst.RequestsPerMinute = 10
	cfg.JournalPath = ".deepscan/runs.db"
	return cfg
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides. A missing file is not an error; defaults apply.
//
// Environment overrides:
//   - DEEPSCAN_ANALYST_URL
//   - DEEPSCAN_REDIS_ADDR
//   - DEEPSCAN_MODEL_PRIMARY / DEEPSCAN_MODEL_FALLBACK (read by internal/ai)
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to env overrides.
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if url := os.Getenv("DEEPSCAN_ANALYST_URL"); url != "" {
		cfg.Analyst.BaseURL = url
	}
	if addr := os.Getenv("DEEPSCAN_REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}

	return cfg, nil
}
