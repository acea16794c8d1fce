// Package client is a Go client for the fitsync REST API
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fitsync/internal/core"
	"fitsync/internal/oauth"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FitsyncAPI is a client for the fitsync REST API
type FitsyncAPI struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewFitsyncAPI creates a new fitsync API client. A zero timeout leaves
// deadlines to the caller's context.
func NewFitsyncAPI(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *FitsyncAPI {
	if logger == nil {
		logger = slog.Default()
	}
	return &FitsyncAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Provider is one entry of GET /v1/providers
type Provider struct {
	Type       core.ProviderType `json:"type"`
	Name       string            `json:"name"`
	Capability core.Capability   `json:"capability"`
	Enabled    bool              `json:"enabled"`
	Configured bool              `json:"configured"`
	Reason     string            `json:"reason,omitempty"`
	AuthState  oauth.AuthState   `json:"auth_state,omitempty"`
}

// SyncSummary is the batch sync response
type SyncSummary struct {
	SuccessCount int `json:"success_count"`
	FailedCount  int `json:"failed_count"`
	Total        int `json:"total"`
}

type syncRequest struct {
	Date string `json:"date,omitempty"`
}

// Error is a non-2xx API response
type Error struct {
	StatusCode int
	Message    string `json:"error"`
	Code       string `json:"code"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d: %s (%s)", e.StatusCode, e.Message, e.Code)
}

// ListProviders retrieves every known provider
func (a *FitsyncAPI) ListProviders(ctx context.Context) ([]Provider, error) {
	var providers []Provider
	if err := a.doRequest(ctx, http.MethodGet, "/v1/providers", nil, &providers); err != nil {
		return nil, err
	}
	return providers, nil
}

// ListDevices retrieves the connected devices
func (a *FitsyncAPI) ListDevices(ctx context.Context) ([]core.DeviceConnection, error) {
	var devices []core.DeviceConnection
	if err := a.doRequest(ctx, http.MethodGet, "/v1/devices", nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// ConnectDevice starts a connection and blocks until the user finishes authorizing
func (a *FitsyncAPI) ConnectDevice(ctx context.Context, provider core.ProviderType) (*core.ConnectResult, error) {
	req := map[string]string{"provider": string(provider)}
	var result core.ConnectResult
	if err := a.doRequest(ctx, http.MethodPost, "/v1/devices/connect", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PendingAuthorizations lists authorization sessions waiting on the user
func (a *FitsyncAPI) PendingAuthorizations(ctx context.Context) ([]oauth.PendingSession, error) {
	var pending []oauth.PendingSession
	if err := a.doRequest(ctx, http.MethodGet, "/v1/oauth/pending", nil, &pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// CancelAuthorization abandons a pending session
func (a *FitsyncAPI) CancelAuthorization(ctx context.Context, state string) error {
	return a.doRequest(ctx, http.MethodPost, "/v1/oauth/sessions/"+url.PathEscape(state)+"/cancel", nil, nil)
}

// SyncAll syncs every device. An empty date means today.
func (a *FitsyncAPI) SyncAll(ctx context.Context, date string) (*SyncSummary, error) {
	var summary SyncSummary
	if err := a.doRequest(ctx, http.MethodPost, "/v1/devices/sync", syncRequest{Date: date}, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// SyncDevice syncs one device. An empty date means today.
func (a *FitsyncAPI) SyncDevice(ctx context.Context, deviceID, date string) error {
	return a.doRequest(ctx, http.MethodPost, "/v1/devices/"+url.PathEscape(deviceID)+"/sync", syncRequest{Date: date}, nil)
}

// DisconnectDevice disconnects a device
func (a *FitsyncAPI) DisconnectDevice(ctx context.Context, deviceID string) error {
	return a.doRequest(ctx, http.MethodDelete, "/v1/devices/"+url.PathEscape(deviceID), nil, nil)
}

// GetActivity retrieves a day's activity. date is YYYY-MM-DD or "today".
func (a *FitsyncAPI) GetActivity(ctx context.Context, date string) (*core.HealthData, error) {
	var data core.HealthData
	if err := a.doRequest(ctx, http.MethodGet, "/v1/activity/"+url.PathEscape(date), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetBalance retrieves a day's energy balance. date is YYYY-MM-DD or "today".
func (a *FitsyncAPI) GetBalance(ctx context.Context, date string) (*core.DailyBalance, error) {
	var balance core.DailyBalance
	if err := a.doRequest(ctx, http.MethodGet, "/v1/balance/"+url.PathEscape(date), nil, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// doRequest performs an HTTP request to the fitsync API
func (a *FitsyncAPI) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	endpoint := a.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Fitsync-Key", a.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	a.logger.Debug("API request",
		"method", method,
		"url", endpoint,
	)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
