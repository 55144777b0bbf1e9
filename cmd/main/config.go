package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/garrulax/garrulax/pkg/compose"
)

// Config is the application configuration, kept as a JSON file that is
// created with defaults on first run.
type Config struct {
	LogLevel     string         `json:"log_level"`
	DatabasePath string         `json:"database_path"`
	Compose      compose.Config `json:"compose_config"`
}

// configDir returns the directory garrulax files default to.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".garrulax")
}

// DefaultConfigPath returns the config path used when --config is not
// given.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.json")
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		DatabasePath: filepath.Join(configDir(), "garrulax.db"),
		Compose:      compose.DefaultConfig(),
	}
}

// LoadConfig reads the configuration from a JSON file at the given
// path. If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			_ = os.MkdirAll(filepath.Dir(path), 0o755)
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// A missing config file is not fatal, the defaults apply anyway.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// applyEnvOverrides lets GARRULAX_* environment variables (usually
// loaded from ~/.garrulax/.env) override the file configuration.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("GARRULAX_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("GARRULAX_DATABASE_PATH"); v != "" {
		config.DatabasePath = v
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
