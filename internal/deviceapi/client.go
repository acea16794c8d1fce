// Package deviceapi is the client for the server-side device registry
package deviceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fitsync/internal/core"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured is returned by every call when no base URL is set
var ErrNotConfigured = errors.New("device registry is not configured")

// Client is a client for the server device registry REST API
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a new device registry client
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "deviceapi"),
	}
}

// Device is a device as the registry returns it
type Device struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Provider   string     `json:"provider"`
	Status     string     `json:"status"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	IsPrimary  bool       `json:"is_primary"`
}

// ToCore converts the wire form; unknown providers are rejected
func (d Device) ToCore() (core.DeviceConnection, error) {
	provider, err := core.ParseProviderType(d.Provider)
	if err != nil {
		return core.DeviceConnection{}, err
	}
	status := core.DeviceStatus(strings.ToUpper(d.Status))
	switch status {
	case core.DeviceStatusConnected, core.DeviceStatusDisconnected, core.DeviceStatusSyncing, core.DeviceStatusError:
	default:
		status = core.DeviceStatusConnected
	}
	return core.DeviceConnection{
		ID:         d.ID,
		Name:       d.Name,
		Provider:   provider,
		Status:     status,
		LastSyncAt: d.LastSyncAt,
		IsPrimary:  d.IsPrimary,
	}, nil
}

type deviceList struct {
	Devices []Device `json:"devices"`
}

// ConnectRequest registers a newly authorized device
type ConnectRequest struct {
	Provider core.ProviderType `json:"provider"`
	Name     string            `json:"name"`
}

// SyncReport is the payload sent after a successful device sync
type SyncReport struct {
	SyncedAt time.Time `json:"synced_at"`
	Data     Activity  `json:"data"`
}

// Activity is a daily snapshot on the wire; dates are plain YYYY-MM-DD
type Activity struct {
	Date           string   `json:"date"`
	Provider       string   `json:"provider,omitempty"`
	Steps          int      `json:"steps"`
	CaloriesBurned float64  `json:"calories_burned"`
	ActiveMinutes  int      `json:"active_minutes"`
	HeartRate      *float64 `json:"heart_rate,omitempty"`
	Distance       *float64 `json:"distance,omitempty"`
	Weight         *float64 `json:"weight,omitempty"`
}

// NewActivity converts a snapshot to its wire form
func NewActivity(data *core.HealthData) Activity {
	return Activity{
		Date:           data.Date.Format(core.DateLayout),
		Provider:       string(data.Provider),
		Steps:          data.Steps,
		CaloriesBurned: data.CaloriesBurned,
		ActiveMinutes:  data.ActiveMinutes,
		HeartRate:      data.HeartRate,
		Distance:       data.Distance,
		Weight:         data.Weight,
	}
}

// ToCore converts the wire form, parsing the date in loc
func (a Activity) ToCore(loc *time.Location) (*core.HealthData, error) {
	date, err := core.ParseDate(a.Date, loc)
	if err != nil {
		return nil, err
	}
	data := &core.HealthData{
		Date:           date,
		Provider:       core.ProviderType(a.Provider),
		Steps:          a.Steps,
		CaloriesBurned: a.CaloriesBurned,
		ActiveMinutes:  a.ActiveMinutes,
		HeartRate:      a.HeartRate,
		Distance:       a.Distance,
		Weight:         a.Weight,
	}
	data.Normalize()
	return data, nil
}

type activityList struct {
	Activities []Activity `json:"activities"`
}

// Balance is the registry's precomputed daily balance
type Balance struct {
	CaloriesIn    float64            `json:"calories_in"`
	CaloriesOut   float64            `json:"calories_out"`
	Balance       float64            `json:"balance"`
	BalanceStatus core.BalanceStatus `json:"balance_status"`
}

// APIError represents an API error response
type APIError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ListDevices retrieves the user's devices. Entries with unknown providers are skipped.
func (c *Client) ListDevices(ctx context.Context) ([]core.DeviceConnection, error) {
	var list deviceList
	if err := c.doRequest(ctx, http.MethodGet, "/devices", nil, &list); err != nil {
		return nil, err
	}

	devices := make([]core.DeviceConnection, 0, len(list.Devices))
	for _, d := range list.Devices {
		device, err := d.ToCore()
		if err != nil {
			c.logger.Warn("Skipping device with unknown provider", "device_id", d.ID, "provider", d.Provider)
			continue
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// ConnectDevice registers a device and returns it with its server-assigned ID
func (c *Client) ConnectDevice(ctx context.Context, req ConnectRequest) (*core.DeviceConnection, error) {
	var device Device
	if err := c.doRequest(ctx, http.MethodPost, "/devices/connect", req, &device); err != nil {
		return nil, err
	}
	if device.ID == "" {
		return nil, errors.New("registry returned a device without an id")
	}
	connection, err := device.ToCore()
	if err != nil {
		return nil, err
	}
	return &connection, nil
}

// ReportSync tells the registry a device synced
func (c *Client) ReportSync(ctx context.Context, deviceID string, report SyncReport) error {
	return c.doRequest(ctx, http.MethodPost, "/devices/"+url.PathEscape(deviceID)+"/sync", report, nil)
}

// DeleteDevice removes a device from the registry
func (c *Client) DeleteDevice(ctx context.Context, deviceID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/devices/"+url.PathEscape(deviceID), nil, nil)
}

// GetActivity returns the aggregated activity between start and end inclusive.
// Dates are interpreted in start's location; malformed entries are skipped.
func (c *Client) GetActivity(ctx context.Context, start, end time.Time) ([]*core.HealthData, error) {
	path := "/devices/activity/" + start.Format(core.DateLayout) + "/" + end.Format(core.DateLayout)

	var list activityList
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}

	activities := make([]*core.HealthData, 0, len(list.Activities))
	for _, a := range list.Activities {
		data, err := a.ToCore(start.Location())
		if err != nil {
			c.logger.Warn("Skipping malformed activity", "date", a.Date, "error", err)
			continue
		}
		activities = append(activities, data)
	}
	return activities, nil
}

// GetBalance returns the registry's balance for date
func (c *Client) GetBalance(ctx context.Context, date time.Time) (*Balance, error) {
	var balance Balance
	if err := c.doRequest(ctx, http.MethodGet, "/devices/balance/"+date.Format(core.DateLayout), nil, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// doRequest performs an HTTP request to the registry API
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	endpoint := c.baseURL + path

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

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("API request",
		"method", method,
		"path", path,
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", core.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", core.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &core.HTTPStatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			statusErr.Body = fmt.Sprintf("%s (%s)", apiErr.Error, apiErr.Code)
		}
		return statusErr
	}

	if result != nil && resp.StatusCode != http.StatusNoContent && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
