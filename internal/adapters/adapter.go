// Package adapters defines the provider data adapter contract and the
// shared HTTP plumbing the provider implementations build on.
package adapters

import (
	"context"
	"fitsync/internal/core"
	"time"
)

// Adapter fetches one day of activity from a provider and normalizes it.
// A 401 from the provider must surface as an error matching core.ErrTokenExpired.
type Adapter interface {
	Provider() core.ProviderType
	Fetch(ctx context.Context, accessToken string, date time.Time) (*core.HealthData, error)
}

// DayWindow returns the [start, end) bounds of date's calendar day in its location
func DayWindow(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 1)
}

// NewHealthData returns an empty snapshot for provider on date's calendar day
func NewHealthData(provider core.ProviderType, date time.Time) *core.HealthData {
	start, _ := DayWindow(date)
	return &core.HealthData{
		Date:     start,
		Provider: provider,
	}
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
