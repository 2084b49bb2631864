package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"atomrouter/models"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// envLocations are tried in order. Values already present in the process
// environment, or loaded from an earlier file, are never overwritten.
var envLocations = []string{
	".env.local",
	".env",
	"config/.env",
}

// LoadEnv loads environment variables from a .env file. A missing file is not an error.
func LoadEnv(filename string) (bool, error) {
	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err := godotenv.Load(filename); err != nil {
		return false, fmt.Errorf("error loading %s file: %w", filename, err)
	}

	slog.Info("loaded environment file", "file", filename)
	return true, nil
}

// LoadEnvWithFallback loads every .env file found in the standard locations,
// or only the given file when explicit is not empty
func LoadEnvWithFallback(explicit string) error {
	if explicit != "" {
		found, err := LoadEnv(explicit)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("env file %s not found", explicit)
		}
		return nil
	}

	loaded := 0
	for _, location := range envLocations {
		found, err := LoadEnv(location)
		if err != nil {
			return err
		}
		if found {
			loaded++
		}
	}

	if loaded == 0 {
		slog.Info("no .env files found in standard locations, using system environment only")
	}
	return nil
}

// LoadConfig parses the process environment into a Config
func LoadConfig() (*models.Config, error) {
	return parseConfig(env.Options{})
}

// LoadConfigFrom parses the given variables instead of the process environment
func LoadConfigFrom(vars map[string]string) (*models.Config, error) {
	return parseConfig(env.Options{Environment: vars})
}

func parseConfig(opts env.Options) (*models.Config, error) {
	cfg := &models.Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if cfg.ProviderTimeout <= 0 {
		return nil, fmt.Errorf("PROVIDER_TIMEOUT must be positive, got %s", cfg.ProviderTimeout)
	}
	return cfg, nil
}
