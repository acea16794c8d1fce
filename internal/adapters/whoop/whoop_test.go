package whoop

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
		assert.Equal(t, "/v1/cycle", r.URL.Path)
		assert.Equal(t, "2026-03-14T00:00:00Z", r.URL.Query().Get("start"))
		assert.Equal(t, "2026-03-15T00:00:00Z", r.URL.Query().Get("end"))
		w.Write([]byte(`{
			"records": [
				{"id": 1, "score_state": "SCORED", "score": {"strain": 12.1, "kilojoule": 8368, "average_heart_rate": 64, "max_heart_rate": 160}},
				{"id": 2, "score_state": "PENDING_SCORE"}
			],
			"next_token": ""
		}`))
	}))
	defer server.Close()

	adapter := New(adapters.NewAPIClient(core.ProviderWhoop, server.URL, adapters.ClientOptions{}), nil)
	assert.Equal(t, core.ProviderWhoop, adapter.Provider())

	data, err := adapter.Fetch(context.Background(), "whoop-token", time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Zero(t, data.Steps)
	assert.InDelta(t, 2000.0, data.CaloriesBurned, 0.001)
	require.NotNil(t, data.HeartRate)
	assert.Equal(t, 64.0, *data.HeartRate)
}

func TestAdapter_FetchNoCycles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records": []}`))
	}))
	defer server.Close()

	adapter := New(adapters.NewAPIClient(core.ProviderWhoop, server.URL, adapters.ClientOptions{}), nil)
	data, err := adapter.Fetch(context.Background(), "whoop-token", time.Now())
	require.NoError(t, err)
	assert.Zero(t, data.CaloriesBurned)
	assert.Nil(t, data.HeartRate)
}

func TestAdapter_FetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := New(adapters.NewAPIClient(core.ProviderWhoop, server.URL, adapters.ClientOptions{}), nil)
	_, err := adapter.Fetch(context.Background(), "whoop-token", time.Now())
	assert.ErrorIs(t, err, core.ErrNetwork)
}

func TestAdapter_FetchToleratesDriftedFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"records": [
				{"score_state": "SCORED", "score": {"kilojoule": "4184", "average_heart_rate": "unknown"}},
				{"score_state": 3, "score": {"kilojoule": 4184, "average_heart_rate": 70}},
				{"score_state": "SCORED", "score": "pending"}
			]
		}`))
	}))
	defer server.Close()

	adapter := New(adapters.NewAPIClient(core.ProviderWhoop, server.URL, adapters.ClientOptions{}), nil)
	data, err := adapter.Fetch(context.Background(), "whoop-token", time.Now())
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.InDelta(t, 2000.0, data.CaloriesBurned, 0.001)
	require.NotNil(t, data.HeartRate)
	assert.Equal(t, 70.0, *data.HeartRate)
}
