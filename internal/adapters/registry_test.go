package adapters

import (
	"context"
	"errors"
	"fitsync/internal/core"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAdapter is a simple mock implementation of Adapter
type mockAdapter struct {
	provider core.ProviderType
}

func (m *mockAdapter) Provider() core.ProviderType {
	return m.provider
}

func (m *mockAdapter) Fetch(ctx context.Context, accessToken string, date time.Time) (*core.HealthData, error) {
	return NewHealthData(m.provider, date), nil
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	err := registry.Register(&mockAdapter{provider: core.ProviderFitbit})
	require.NoError(t, err)

	err = registry.Register(&mockAdapter{provider: core.ProviderPolar})
	require.NoError(t, err)

	err = registry.Register(&mockAdapter{provider: core.ProviderFitbit})
	assert.ErrorIs(t, err, ErrAdapterAlreadyExists)

	assert.Equal(t, 2, registry.Len())
	assert.Equal(t, []core.ProviderType{core.ProviderFitbit, core.ProviderPolar}, registry.List())
}

func TestRegistry_RegisterRejectsUnknownProvider(t *testing.T) {
	registry := NewRegistry()

	err := registry.Register(&mockAdapter{provider: "STRAVA"})
	assert.ErrorIs(t, err, core.ErrUnsupportedProvider)

	err = registry.Register(nil)
	assert.Error(t, err)

	assert.Zero(t, registry.Len())
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry()
	adapter := &mockAdapter{provider: core.ProviderWhoop}
	require.NoError(t, registry.Register(adapter))

	retrieved, err := registry.Get(core.ProviderWhoop)
	require.NoError(t, err)
	assert.Equal(t, adapter, retrieved)

	tests := []struct {
		name            string
		provider        core.ProviderType
		wantKnown       bool
		wantUnsupported bool
	}{
		{"known provider without adapter", core.ProviderGarmin, true, false},
		{"unknown provider", "STRAVA", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Get(tt.provider)
			assert.ErrorIs(t, err, core.ErrNoAdapter)
			assert.Equal(t, tt.wantUnsupported, errors.Is(err, core.ErrUnsupportedProvider))

			var missing *MissingAdapterError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.provider, missing.Provider)
			assert.Equal(t, tt.wantKnown, missing.Known)
			assert.Contains(t, err.Error(), string(tt.provider))
		})
	}
}

func TestRegistry_ListFollowsProviderOrder(t *testing.T) {
	registry := NewRegistry()
	for _, provider := range []core.ProviderType{core.ProviderPolar, core.ProviderAppleHealth, core.ProviderWhoop} {
		require.NoError(t, registry.Register(&mockAdapter{provider: provider}))
	}

	assert.Equal(t, []core.ProviderType{core.ProviderAppleHealth, core.ProviderWhoop, core.ProviderPolar}, registry.List())
	assert.Equal(t, []core.ProviderType{
		core.ProviderGoogleFit, core.ProviderFitbit, core.ProviderGarmin, core.ProviderSamsungHealth,
	}, registry.Missing())
}

func TestDayWindow(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	date := time.Date(2026, 3, 14, 17, 45, 0, 0, loc)

	start, end := DayWindow(date)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, loc), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	data := NewHealthData(core.ProviderPolar, date)
	assert.Equal(t, start, data.Date)
	assert.Equal(t, core.ProviderPolar, data.Provider)
}
