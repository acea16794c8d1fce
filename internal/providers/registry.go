// Package providers holds the immutable per-provider configuration: endpoints,
// scopes, client credentials and how each provider is authorized.
package providers

import (
	"errors"
	"fitsync/internal/core"
	"fmt"
	"strings"
)

var (
	ErrProviderNotFound = errors.New("provider not found")
)

// CallbackPath is where providers redirect after authorization
const CallbackPath = "/oauth/callback"

// TokenAuthStyle selects how client credentials are sent to the token endpoint
type TokenAuthStyle string

const (
	AuthStyleHeader TokenAuthStyle = "header" // HTTP Basic
	AuthStyleParams TokenAuthStyle = "params" // client_secret in the POST body
)

// Config is the static configuration of one provider
type Config struct {
	Type              core.ProviderType
	DisplayName       string
	Capability        core.Capability
	UnsupportedReason string
	Enabled           bool
	AuthURL           string
	TokenURL          string
	APIBaseURL        string
	Scopes            []string
	ClientID          string
	ClientSecret      string
	RedirectURL       string
	AuthStyle         TokenAuthStyle
	AuthParams        map[string]string
}

// CheckOAuthReady reports why this provider cannot start an OAuth flow, if it can't.
// Unsupported and SDK providers fail with ErrUnsupportedProvider, missing
// client credentials with ErrConfiguration.
func (c Config) CheckOAuthReady() error {
	switch c.Capability {
	case core.CapabilityUnsupported:
		return fmt.Errorf("%w: %s %s", core.ErrUnsupportedProvider, c.DisplayName, c.UnsupportedReason)
	case core.CapabilitySDK:
		return fmt.Errorf("%w: %s is authorized through the platform SDK, not OAuth", core.ErrUnsupportedProvider, c.DisplayName)
	}
	if !c.Enabled {
		return fmt.Errorf("%w: %s is not enabled", core.ErrConfiguration, c.DisplayName)
	}
	if c.ClientID == "" {
		return fmt.Errorf("%w: missing client id for %s", core.ErrConfiguration, c.DisplayName)
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("%w: missing client secret for %s", core.ErrConfiguration, c.DisplayName)
	}
	return nil
}

// Settings are the deployment-specific values layered over the defaults
type Settings struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
}

// Defaults returns the built-in configuration for every known provider
func Defaults() []Config {
	return []Config{
		{
			Type:        core.ProviderAppleHealth,
			DisplayName: "Apple Health",
			Capability:  core.CapabilitySDK,
			Enabled:     true,
		},
		{
			Type:        core.ProviderGoogleFit,
			DisplayName: "Google Fit",
			Capability:  core.CapabilityOAuth2,
			AuthURL:     "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL:    "https://oauth2.googleapis.com/token",
			APIBaseURL:  "https://www.googleapis.com/fitness/v1/users/me",
			Scopes: []string{
				"https://www.googleapis.com/auth/fitness.activity.read",
				"https://www.googleapis.com/auth/fitness.body.read",
				"https://www.googleapis.com/auth/fitness.heart_rate.read",
				"https://www.googleapis.com/auth/fitness.location.read",
			},
			AuthStyle: AuthStyleParams,
			// Google only issues a refresh token on an offline, consented grant
			AuthParams: map[string]string{"access_type": "offline", "prompt": "consent"},
		},
		{
			Type:        core.ProviderFitbit,
			DisplayName: "Fitbit",
			Capability:  core.CapabilityOAuth2,
			AuthURL:     "https://www.fitbit.com/oauth2/authorize",
			TokenURL:    "https://api.fitbit.com/oauth2/token",
			APIBaseURL:  "https://api.fitbit.com",
			Scopes:      []string{"activity", "heartrate", "weight", "profile"},
			AuthStyle:   AuthStyleHeader,
		},
		{
			Type:              core.ProviderGarmin,
			DisplayName:       "Garmin Connect",
			Capability:        core.CapabilityUnsupported,
			UnsupportedReason: "requires OAuth 1.0a request signing, which is not supported",
			APIBaseURL:        "https://apis.garmin.com/wellness-api/rest",
		},
		{
			Type:        core.ProviderWhoop,
			DisplayName: "WHOOP",
			Capability:  core.CapabilityOAuth2,
			AuthURL:     "https://api.prod.whoop.com/oauth/oauth2/auth",
			TokenURL:    "https://api.prod.whoop.com/oauth/oauth2/token",
			APIBaseURL:  "https://api.prod.whoop.com/developer",
			Scopes:      []string{"read:cycles", "read:recovery", "read:workout", "read:body_measurement", "offline"},
			AuthStyle:   AuthStyleParams,
		},
		{
			Type:        core.ProviderPolar,
			DisplayName: "Polar",
			Capability:  core.CapabilityOAuth2,
			AuthURL:     "https://flow.polar.com/oauth2/authorization",
			TokenURL:    "https://polarremote.com/v2/oauth2/token",
			APIBaseURL:  "https://www.polaraccesslink.com",
			Scopes:      []string{"accesslink.read_all"},
			AuthStyle:   AuthStyleHeader,
		},
		{
			Type:              core.ProviderSamsungHealth,
			DisplayName:       "Samsung Health",
			Capability:        core.CapabilityUnsupported,
			UnsupportedReason: "requires the Samsung Health native SDK bridge, which is not supported",
		},
	}
}

// Registry is the immutable set of provider configurations.
// It is built once at startup and safe for concurrent reads.
type Registry struct {
	configs map[core.ProviderType]Config
	order   []core.ProviderType
}

// NewRegistry layers settings over the defaults. redirectBaseURL is the
// externally reachable base URL of this server.
func NewRegistry(settings map[core.ProviderType]Settings, redirectBaseURL string) *Registry {
	r := &Registry{
		configs: make(map[core.ProviderType]Config),
	}

	redirectURL := strings.TrimRight(redirectBaseURL, "/") + CallbackPath

	for _, cfg := range Defaults() {
		if s, ok := settings[cfg.Type]; ok {
			cfg.Enabled = cfg.Enabled || s.Enabled
			cfg.ClientID = s.ClientID
			cfg.ClientSecret = s.ClientSecret
			if len(s.Scopes) > 0 {
				cfg.Scopes = append([]string(nil), s.Scopes...)
			}
			if s.AuthURL != "" {
				cfg.AuthURL = s.AuthURL
			}
			if s.TokenURL != "" {
				cfg.TokenURL = s.TokenURL
			}
			if s.APIBaseURL != "" {
				cfg.APIBaseURL = s.APIBaseURL
			}
		}
		if cfg.Capability == core.CapabilityOAuth2 {
			cfg.RedirectURL = redirectURL
		}
		r.configs[cfg.Type] = cfg
		r.order = append(r.order, cfg.Type)
	}

	return r
}

// Get retrieves a provider configuration by type
func (r *Registry) Get(provider core.ProviderType) (Config, error) {
	cfg, exists := r.configs[provider]
	if !exists {
		return Config{}, fmt.Errorf("%w: %s", ErrProviderNotFound, provider)
	}
	return copyConfig(cfg), nil
}

// List returns every provider configuration in display order
func (r *Registry) List() []Config {
	configs := make([]Config, 0, len(r.order))
	for _, p := range r.order {
		configs = append(configs, copyConfig(r.configs[p]))
	}
	return configs
}

// Len returns the number of providers
func (r *Registry) Len() int {
	return len(r.order)
}

// copyConfig keeps callers from mutating the registry through shared slices and maps
func copyConfig(c Config) Config {
	c.Scopes = append([]string(nil), c.Scopes...)
	if c.AuthParams != nil {
		params := make(map[string]string, len(c.AuthParams))
		for k, v := range c.AuthParams {
			params[k] = v
		}
		c.AuthParams = params
	}
	return c
}
