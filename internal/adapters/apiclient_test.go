package adapters

import (
	"context"
	"errors"
	"fitsync/internal/core"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/summary", r.URL.Path)
		assert.Equal(t, "2026-03-14", r.URL.Query().Get("date"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"steps": 1234, "unknown_field": true}`))
	}))
	defer server.Close()

	client := NewAPIClient(core.ProviderFitbit, server.URL+"/", ClientOptions{})

	var result struct {
		Steps    int `json:"steps"`
		Calories int `json:"calories"`
	}
	err := client.GetJSON(context.Background(), "token-1", "/v1/summary", url.Values{"date": {"2026-03-14"}}, &result)
	require.NoError(t, err)
	assert.Equal(t, 1234, result.Steps)
	assert.Zero(t, result.Calories)
}

func TestAPIClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantExpired bool
	}{
		{"unauthorized", http.StatusUnauthorized, true},
		{"rate limited", http.StatusTooManyRequests, false},
		{"server error", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope"}`))
			}))
			defer server.Close()

			client := NewAPIClient(core.ProviderPolar, server.URL, ClientOptions{})
			err := client.GetJSON(context.Background(), "t", "/x", nil, nil)
			require.Error(t, err)

			var statusErr *core.HTTPStatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.ErrorIs(t, err, core.ErrNetwork)
			assert.Equal(t, tt.wantExpired, errors.Is(err, core.ErrTokenExpired))
		})
	}
}

func TestAPIClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewAPIClient(core.ProviderWhoop, server.URL, ClientOptions{Timeout: 50 * time.Millisecond})
	err := client.GetJSON(context.Background(), "t", "/slow", nil, nil)
	assert.ErrorIs(t, err, core.ErrNetwork)
}

func TestAPIClient_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewAPIClient(core.ProviderFitbit, server.URL, ClientOptions{RequestsPerSecond: 20})

	start := time.Now()
	for i := 0; i < 25; i++ {
		require.NoError(t, client.GetJSON(context.Background(), "t", "/", nil, nil))
	}
	// 20 burst tokens, then 5 more at 20/s
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}
