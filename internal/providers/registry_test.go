package providers

import (
	"fitsync/internal/core"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Defaults(t *testing.T) {
	registry := NewRegistry(nil, "https://fitsync.example.com/")

	assert.Equal(t, len(core.AllProviders), registry.Len())

	capabilities := map[core.ProviderType]core.Capability{
		core.ProviderAppleHealth:   core.CapabilitySDK,
		core.ProviderGoogleFit:     core.CapabilityOAuth2,
		core.ProviderFitbit:        core.CapabilityOAuth2,
		core.ProviderGarmin:        core.CapabilityUnsupported,
		core.ProviderWhoop:         core.CapabilityOAuth2,
		core.ProviderPolar:         core.CapabilityOAuth2,
		core.ProviderSamsungHealth: core.CapabilityUnsupported,
	}
	for provider, want := range capabilities {
		cfg, err := registry.Get(provider)
		require.NoError(t, err)
		assert.Equal(t, want, cfg.Capability, provider)
	}

	fitbit, err := registry.Get(core.ProviderFitbit)
	require.NoError(t, err)
	assert.Equal(t, "https://fitsync.example.com/oauth/callback", fitbit.RedirectURL)
	assert.Equal(t, AuthStyleHeader, fitbit.AuthStyle)

	google, err := registry.Get(core.ProviderGoogleFit)
	require.NoError(t, err)
	assert.Equal(t, AuthStyleParams, google.AuthStyle)
	assert.Equal(t, "offline", google.AuthParams["access_type"])
}

func TestRegistry_Settings(t *testing.T) {
	registry := NewRegistry(map[core.ProviderType]Settings{
		core.ProviderWhoop: {
			Enabled:      true,
			ClientID:     "whoop-id",
			ClientSecret: "whoop-secret",
			Scopes:       []string{"read:cycles", "offline"},
			TokenURL:     "http://localhost:9999/token",
		},
	}, "http://localhost:8080")

	cfg, err := registry.Get(core.ProviderWhoop)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "whoop-id", cfg.ClientID)
	assert.Equal(t, []string{"read:cycles", "offline"}, cfg.Scopes)
	assert.Equal(t, "http://localhost:9999/token", cfg.TokenURL)
	assert.Equal(t, "https://api.prod.whoop.com/oauth/oauth2/auth", cfg.AuthURL)
	assert.NoError(t, cfg.CheckOAuthReady())
}

func TestRegistry_GetIsolation(t *testing.T) {
	registry := NewRegistry(nil, "http://localhost:8080")

	cfg, err := registry.Get(core.ProviderGoogleFit)
	require.NoError(t, err)
	cfg.Scopes[0] = "mutated"
	cfg.AuthParams["prompt"] = "none"

	again, err := registry.Get(core.ProviderGoogleFit)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.Scopes[0])
	assert.Equal(t, "consent", again.AuthParams["prompt"])
}

func TestRegistry_GetUnknown(t *testing.T) {
	registry := NewRegistry(nil, "http://localhost:8080")
	_, err := registry.Get(core.ProviderType("STRAVA"))
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestConfig_CheckOAuthReady(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "unsupported provider",
			config:  Config{DisplayName: "Garmin Connect", Capability: core.CapabilityUnsupported, UnsupportedReason: "requires OAuth 1.0a"},
			wantErr: core.ErrUnsupportedProvider,
		},
		{
			name:    "sdk provider",
			config:  Config{DisplayName: "Apple Health", Capability: core.CapabilitySDK, Enabled: true},
			wantErr: core.ErrUnsupportedProvider,
		},
		{
			name:    "disabled provider",
			config:  Config{DisplayName: "Fitbit", Capability: core.CapabilityOAuth2, ClientID: "id", ClientSecret: "secret"},
			wantErr: core.ErrConfiguration,
		},
		{
			name:    "missing secret",
			config:  Config{DisplayName: "Fitbit", Capability: core.CapabilityOAuth2, Enabled: true, ClientID: "id"},
			wantErr: core.ErrConfiguration,
		},
		{
			name:   "ready",
			config: Config{DisplayName: "Fitbit", Capability: core.CapabilityOAuth2, Enabled: true, ClientID: "id", ClientSecret: "secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.CheckOAuthReady()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
