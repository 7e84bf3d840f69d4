package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML configuration file and unmarshals it into the specified type.
// T must be a struct type that can be unmarshaled from YAML.
func LoadConfig[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg T
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// Load reads the configuration file, applies defaults and validates it.
// A missing file is not an error when optional is true: defaults are used instead.
func Load(path string, optional bool) (*Config, error) {
	logger := log.With().Str("com", "config-loader").Logger()

	cfg, err := LoadConfig[Config](path)
	if err != nil {
		if !optional || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		logger.Debug().Str("config", path).Msg("config file not found, using defaults")
		cfg = &Config{}
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Debug().
		Str("address", cfg.Client.Address()).
		Str("name", cfg.Client.Name).
		Msg("loaded configuration")

	return cfg, nil
}
