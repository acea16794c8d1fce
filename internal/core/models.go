package core

import (
	"fmt"
	"strings"
	"time"
)

// ProviderType identifies a third-party fitness/health platform
type ProviderType string

const (
	ProviderAppleHealth   ProviderType = "APPLE_HEALTH"
	ProviderGoogleFit     ProviderType = "GOOGLE_FIT"
	ProviderFitbit        ProviderType = "FITBIT"
	ProviderGarmin        ProviderType = "GARMIN"
	ProviderWhoop         ProviderType = "WHOOP"
	ProviderPolar         ProviderType = "POLAR"
	ProviderSamsungHealth ProviderType = "SAMSUNG_HEALTH"
)

// AllProviders lists every known provider in display order
var AllProviders = []ProviderType{
	ProviderAppleHealth,
	ProviderGoogleFit,
	ProviderFitbit,
	ProviderGarmin,
	ProviderWhoop,
	ProviderPolar,
	ProviderSamsungHealth,
}

// ParseProviderType accepts "FITBIT", "fitbit", "google-fit" and "google_fit" style names
func ParseProviderType(s string) (ProviderType, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for _, p := range AllProviders {
		if string(p) == normalized {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown provider %q", ErrUnsupportedProvider, s)
}

// Slug returns the lowercase form used in keys, env vars and URLs
func (p ProviderType) Slug() string {
	return strings.ToLower(string(p))
}

// Capability describes how a provider is authorized
type Capability string

const (
	CapabilityOAuth2      Capability = "oauth2"
	CapabilitySDK         Capability = "sdk"
	CapabilityUnsupported Capability = "unsupported"
)

// DeviceStatus is the lifecycle state of a device connection
type DeviceStatus string

const (
	DeviceStatusDisconnected DeviceStatus = "DISCONNECTED"
	DeviceStatusConnected    DeviceStatus = "CONNECTED"
	DeviceStatusSyncing      DeviceStatus = "SYNCING"
	DeviceStatusError        DeviceStatus = "ERROR"
)

// DeviceConnection is one linked device for one user
type DeviceConnection struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Provider   ProviderType `json:"provider"`
	Status     DeviceStatus `json:"status"`
	LastSyncAt *time.Time   `json:"last_sync_at,omitempty"`
	IsPrimary  bool         `json:"is_primary"`
}

// Syncable reports whether a batch sync should pick up this device.
// ERROR is non-terminal: the next attempt may recover.
func (d *DeviceConnection) Syncable() bool {
	return d.Status == DeviceStatusConnected || d.Status == DeviceStatusError
}

// CredentialPair is the token bundle for one user-provider link
type CredentialPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// HasAccessToken reports whether an access token is stored
func (c CredentialPair) HasAccessToken() bool {
	return c.AccessToken != ""
}

// Expired reports whether a known expiry has passed
func (c CredentialPair) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// HealthData is the provider-agnostic daily activity snapshot
type HealthData struct {
	Date           time.Time    `json:"date"`
	Provider       ProviderType `json:"provider,omitempty"`
	Steps          int          `json:"steps"`
	CaloriesBurned float64      `json:"calories_burned"`
	ActiveMinutes  int          `json:"active_minutes"`
	HeartRate      *float64     `json:"heart_rate,omitempty"`
	Distance       *float64     `json:"distance,omitempty"` // meters
	Weight         *float64     `json:"weight,omitempty"`   // kilograms
}

// Normalize clamps negative counters to zero so every snapshot honours the
// non-negative contract regardless of what a provider returned.
func (h *HealthData) Normalize() {
	if h.Steps < 0 {
		h.Steps = 0
	}
	if h.CaloriesBurned < 0 {
		h.CaloriesBurned = 0
	}
	if h.ActiveMinutes < 0 {
		h.ActiveMinutes = 0
	}
}

// SyncResult aggregates a batch sync
type SyncResult struct {
	SuccessCount int `json:"success_count"`
	FailedCount  int `json:"failed_count"`
}

// Total returns the number of devices attempted
func (r SyncResult) Total() int {
	return r.SuccessCount + r.FailedCount
}

// OutcomeKind discriminates connection outcomes
type OutcomeKind string

const (
	OutcomeSuccess       OutcomeKind = "success"
	OutcomeCancelled     OutcomeKind = "cancelled"
	OutcomeMisconfigured OutcomeKind = "misconfigured"
	OutcomeUnsupported   OutcomeKind = "unsupported"
	OutcomeRejected      OutcomeKind = "rejected"
	OutcomeNetwork       OutcomeKind = "network"
)

// ConnectionOutcome is the terminal result of an authorization attempt.
// It carries tokens and must not leave the oauth package boundary unfiltered.
type ConnectionOutcome struct {
	Success      bool
	Kind         OutcomeKind
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	Error        string
	Err          error
}

// ConnectResult is what callers of the orchestrator see after connecting
type ConnectResult struct {
	Success bool              `json:"success"`
	Kind    OutcomeKind       `json:"kind"`
	Device  *DeviceConnection `json:"device,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// NutritionStats is the daily summary supplied by the nutrition collaborator
type NutritionStats struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber,omitempty"`
}

// DateLayout is the calendar date format used on every wire
const DateLayout = "2006-01-02"

// StartOfDay normalizes t to midnight in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// ParseDate parses a YYYY-MM-DD date in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}
