package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		LogLevel string
	}
	API struct {
		BaseURL string
		Timeout time.Duration
	}
	Local struct {
		// Path of the local key-value scope file. Empty means the local
		// storage capability is absent (non-interactive context).
		Path string
	}
	Store struct {
		Port         string
		SnapshotPath string
	}
}

// Load reads configuration from the environment, optionally preloading a
// .env file. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{}

	cfg.App.LogLevel = getenv("LOG_LEVEL", "info")

	cfg.API.BaseURL = getenv("API_BASE_URL", "http://localhost:3000")
	timeout := getenv("API_TIMEOUT", "10s")
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid API_TIMEOUT %q: %w", timeout, err)
	}
	cfg.API.Timeout = d

	cfg.Local.Path = os.Getenv("LOCAL_STORE_PATH")

	cfg.Store.Port = getenv("STORE_PORT", "3000")
	cfg.Store.SnapshotPath = os.Getenv("STORE_SNAPSHOT_PATH")

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
