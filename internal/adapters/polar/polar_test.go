package polar

import (
	"context"
	"fitsync/internal/adapters"
	"fitsync/internal/core"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/users/activities/2026-03-14", r.URL.Path)
		assert.Equal(t, "Bearer polar-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"start_time": "2026-03-14T00:00:00",
			"end_time": "2026-03-14T23:59:59",
			"active_duration": "PT1H12M30S",
			"inactive_duration": "PT8H",
			"calories": 2310,
			"active_calories": 640,
			"steps": 8842,
			"inactivity_alert_count": 1,
			"distance_from_steps": 6120.5
		}`))
	}))
	defer server.Close()

	adapter := New(adapters.NewAPIClient(core.ProviderPolar, server.URL, adapters.ClientOptions{}), nil)
	assert.Equal(t, core.ProviderPolar, adapter.Provider())

	data, err := adapter.Fetch(context.Background(), "polar-token", time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 8842, data.Steps)
	assert.Equal(t, 2310.0, data.CaloriesBurned)
	assert.Equal(t, 72, data.ActiveMinutes)
	require.NotNil(t, data.Distance)
	assert.Equal(t, 6120.5, *data.Distance)
	assert.Nil(t, data.HeartRate)
}

func TestAdapter_FetchBadDurationIsIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"steps": 10, "active_duration": "two hours"}`))
	}))
	defer server.Close()

	adapter := New(adapters.NewAPIClient(core.ProviderPolar, server.URL, adapters.ClientOptions{}), nil)
	data, err := adapter.Fetch(context.Background(), "polar-token", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 10, data.Steps)
	assert.Zero(t, data.ActiveMinutes)
}

func TestAdapter_FetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	adapter := New(adapters.NewAPIClient(core.ProviderPolar, server.URL, adapters.ClientOptions{}), nil)
	data, err := adapter.Fetch(context.Background(), "polar-token", time.Now())
	assert.Nil(t, data)
	assert.ErrorIs(t, err, core.ErrNetwork)
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"PT45M", 45 * time.Minute, false},
		{"PT2H30M", 150 * time.Minute, false},
		{"PT1H0M10.5S", time.Hour + 10*time.Second + 500*time.Millisecond, false},
		{"P1DT1H", 25 * time.Hour, false},
		{"PT0S", 0, false},
		{"", 0, true},
		{"P", 0, true},
		{"1H", 0, true},
		{"P1M", 0, true},
		{"PTXM", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseISODuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdapter_FetchToleratesDriftedFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"steps": "9120", "calories": {"kcal": 2300}, "active_duration": 5400, "distance_from_steps": null}`))
	}))
	defer server.Close()

	adapter := New(adapters.NewAPIClient(core.ProviderPolar, server.URL, adapters.ClientOptions{}), nil)
	data, err := adapter.Fetch(context.Background(), "polar-token", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, 9120, data.Steps)
	assert.Zero(t, data.CaloriesBurned)
	assert.Zero(t, data.ActiveMinutes)
	assert.Nil(t, data.Distance)
}
