package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// CLIConfig represents the fitsyncctl configuration
type CLIConfig struct {
	Fitsync FitsyncAPIConfig `json:"fitsync"`
}

// FitsyncAPIConfig contains fitsync API connection settings
type FitsyncAPIConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

// LoadCLIConfig loads CLI configuration from a file, letting
// FITSYNC_URL and FITSYNC_API_KEY override the file values.
// A missing file is fine as long as the environment supplies both values.
func LoadCLIConfig(path string) (*CLIConfig, error) {
	var cfg CLIConfig

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.Fitsync.BaseURL = getEnv("FITSYNC_URL", cfg.Fitsync.BaseURL)
	cfg.Fitsync.APIKey = getEnv("FITSYNC_API_KEY", cfg.Fitsync.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *CLIConfig) Validate() error {
	if c.Fitsync.BaseURL == "" {
		return fmt.Errorf("%w: fitsync.base_url is required", ErrInvalidConfig)
	}

	if c.Fitsync.APIKey == "" {
		return fmt.Errorf("%w: fitsync.api_key is required", ErrInvalidConfig)
	}

	return nil
}
