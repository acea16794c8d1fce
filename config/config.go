package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Provider slugs used as keys in the providers section and in env var names
var providerSlugs = []string{
	"apple_health",
	"google_fit",
	"fitbit",
	"garmin",
	"whoop",
	"polar",
	"samsung_health",
}

// Config represents the application configuration
type Config struct {
	Server    ServerConfig              `json:"server"`
	Database  DatabaseConfig            `json:"database"`
	Security  SecurityConfig            `json:"security"`
	User      UserConfig                `json:"user"`
	Registry  RemoteConfig              `json:"registry"`
	Nutrition RemoteConfig              `json:"nutrition"`
	HTTP      HTTPConfig                `json:"http"`
	OAuth     OAuthConfig               `json:"oauth"`
	Sync      SyncConfig                `json:"sync"`
	Logging   LoggingConfig             `json:"logging"`
	Providers map[string]ProviderConfig `json:"providers"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `json:"path"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	APIKey string `json:"api_key"`
	// CredentialPassphrase derives the key that encrypts stored provider tokens
	CredentialPassphrase string `json:"credential_passphrase"`
}

// UserConfig identifies the account whose devices this instance manages
type UserConfig struct {
	ID       string `json:"id"`
	Timezone string `json:"timezone"`
}

// RemoteConfig points at a JSON collaborator service
type RemoteConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

// HTTPConfig controls outbound calls
type HTTPConfig struct {
	TimeoutSeconds int `json:"timeout_seconds"`
	// RateLimitPerSecond caps requests per provider API
	RateLimitPerSecond float64 `json:"rate_limit_per_second"`
}

// OAuthConfig controls the interactive authorization session
type OAuthConfig struct {
	// RedirectBaseURL is the externally reachable base of this server; the
	// callback path is appended to it.
	RedirectBaseURL       string `json:"redirect_base_url"`
	SessionTimeoutSeconds int    `json:"session_timeout_seconds"`
}

// SyncConfig controls the periodic batch sync
type SyncConfig struct {
	Enabled         bool `json:"enabled"`
	IntervalMinutes int  `json:"interval_minutes"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Format string `json:"format"`
	Level  string `json:"level"`
}

// ProviderConfig holds per-provider client credentials and optional endpoint overrides
type ProviderConfig struct {
	Enabled      bool     `json:"enabled"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes,omitempty"`
	AuthURL      string   `json:"auth_url,omitempty"`
	TokenURL     string   `json:"token_url,omitempty"`
	APIBaseURL   string   `json:"api_base_url,omitempty"`
}

// Timeout returns the outbound HTTP timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// SessionTimeout returns how long an interactive authorization may stay pending
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.OAuth.SessionTimeoutSeconds) * time.Second
}

// SyncInterval returns the batch sync period
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalMinutes) * time.Minute
}

// Location returns the user's timezone, UTC when unset
func (c *Config) Location() (*time.Location, error) {
	if c.User.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.User.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidConfig, c.User.Timezone)
	}
	return loc, nil
}

// Validate validates the configuration and fills defaults.
// Missing provider secrets are not rejected here: they surface as a
// configuration error when that provider is connected.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid server port", ErrInvalidConfig)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("%w: database path is required", ErrInvalidConfig)
	}

	if c.Security.APIKey == "" {
		return fmt.Errorf("%w: API key is required", ErrInvalidConfig)
	}

	if len(c.Security.CredentialPassphrase) < 16 {
		return fmt.Errorf("%w: credential passphrase must be at least 16 characters", ErrInvalidConfig)
	}

	if c.User.ID == "" {
		c.User.ID = "default"
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.HTTP.TimeoutSeconds <= 0 {
		c.HTTP.TimeoutSeconds = 30
	}

	if c.HTTP.RateLimitPerSecond <= 0 {
		c.HTTP.RateLimitPerSecond = 5
	}

	if c.OAuth.SessionTimeoutSeconds <= 0 {
		c.OAuth.SessionTimeoutSeconds = 300
	}

	if c.OAuth.RedirectBaseURL == "" {
		c.OAuth.RedirectBaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.OAuth.RedirectBaseURL = strings.TrimRight(c.OAuth.RedirectBaseURL, "/")

	if c.Sync.IntervalMinutes <= 0 {
		c.Sync.IntervalMinutes = 60
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	for slug := range c.Providers {
		if !knownProvider(slug) {
			return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, slug)
		}
	}

	return nil
}

func knownProvider(slug string) bool {
	for _, s := range providerSlugs {
		if s == slug {
			return true
		}
	}
	return false
}

// Load loads configuration from a JSON file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromEnv loads configuration from environment variables
// This is useful for containerized deployments
func LoadFromEnv() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host: getEnv("FITSYNC_HOST", "0.0.0.0"),
			Port: getEnvInt("FITSYNC_PORT", 8080),
		},
		Database: DatabaseConfig{
			Path: getEnv("FITSYNC_DB_PATH", "./fitsync.db"),
		},
		Security: SecurityConfig{
			APIKey:               getEnv("FITSYNC_API_KEY", ""),
			CredentialPassphrase: getEnv("FITSYNC_CREDENTIAL_PASSPHRASE", ""),
		},
		User: UserConfig{
			ID:       getEnv("FITSYNC_USER_ID", "default"),
			Timezone: getEnv("FITSYNC_TIMEZONE", ""),
		},
		Registry: RemoteConfig{
			BaseURL: getEnv("FITSYNC_REGISTRY_URL", ""),
			APIKey:  getEnv("FITSYNC_REGISTRY_API_KEY", ""),
		},
		Nutrition: RemoteConfig{
			BaseURL: getEnv("FITSYNC_NUTRITION_URL", ""),
			APIKey:  getEnv("FITSYNC_NUTRITION_API_KEY", ""),
		},
		HTTP: HTTPConfig{
			TimeoutSeconds:     getEnvInt("FITSYNC_HTTP_TIMEOUT_SECONDS", 30),
			RateLimitPerSecond: float64(getEnvInt("FITSYNC_RATE_LIMIT_PER_SECOND", 5)),
		},
		OAuth: OAuthConfig{
			RedirectBaseURL:       getEnv("FITSYNC_OAUTH_REDIRECT_BASE_URL", ""),
			SessionTimeoutSeconds: getEnvInt("FITSYNC_OAUTH_SESSION_TIMEOUT_SECONDS", 300),
		},
		Sync: SyncConfig{
			Enabled:         getEnvBool("FITSYNC_SYNC_ENABLED", true),
			IntervalMinutes: getEnvInt("FITSYNC_SYNC_INTERVAL_MINUTES", 60),
		},
		Logging: LoggingConfig{
			Format: getEnv("FITSYNC_LOG_FORMAT", "json"),
			Level:  getEnv("FITSYNC_LOG_LEVEL", "info"),
		},
		Providers: make(map[string]ProviderConfig),
	}

	for _, slug := range providerSlugs {
		prefix := "FITSYNC_" + strings.ToUpper(slug) + "_"
		clientID := getEnv(prefix+"CLIENT_ID", "")
		enabled := getEnvBool(prefix+"ENABLED", clientID != "")
		if !enabled {
			continue
		}
		config.Providers[slug] = ProviderConfig{
			Enabled:      true,
			ClientID:     clientID,
			ClientSecret: getEnv(prefix+"CLIENT_SECRET", ""),
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		fmt.Sscanf(value, "%d", &intVal)
		return intVal
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
