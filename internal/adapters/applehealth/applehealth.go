// Package applehealth serves Apple Health data uploaded by the companion app.
// HealthKit has no web API: the app asks for permission on the phone, records
// the grant here and pushes daily snapshots, which Fetch reads back.
package applehealth

import (
	"context"
	"errors"
	"fitsync/internal/adapters"
	"fitsync/internal/core"
	"fitsync/internal/storage"
	"fmt"
	"log/slog"
	"time"
)

var (
	ErrPermissionNotGranted = fmt.Errorf("%w: Apple Health permission not granted", core.ErrAuthorization)
	ErrNoSamples            = errors.New("no Apple Health samples uploaded for this date")
)

// Adapter implements adapters.Adapter over the platform sample store
type Adapter struct {
	store  storage.PlatformSamples
	logger *slog.Logger
}

// New creates an Apple Health adapter
func New(store storage.PlatformSamples, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		store:  store,
		logger: logger.With("adapter", "applehealth"),
	}
}

// Provider returns the provider type
func (a *Adapter) Provider() core.ProviderType {
	return core.ProviderAppleHealth
}

// Fetch returns the uploaded snapshot for date. The access token is unused.
func (a *Adapter) Fetch(ctx context.Context, _ string, date time.Time) (*core.HealthData, error) {
	granted, err := a.store.PlatformGrant(ctx, core.ProviderAppleHealth)
	if err != nil {
		return nil, fmt.Errorf("failed to read permission: %w", err)
	}
	if !granted {
		return nil, ErrPermissionNotGranted
	}

	start, _ := adapters.DayWindow(date)
	sample, err := a.store.GetPlatformSample(ctx, core.ProviderAppleHealth, start)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	if sample == nil {
		return nil, ErrNoSamples
	}

	sample.Date = start
	sample.Provider = core.ProviderAppleHealth
	sample.Normalize()
	return sample, nil
}

// RequestPermission reports whether the companion app has recorded a grant
func (a *Adapter) RequestPermission(ctx context.Context) (bool, error) {
	return a.store.PlatformGrant(ctx, core.ProviderAppleHealth)
}

// RecordGrant stores the permission decision made on the phone
func (a *Adapter) RecordGrant(ctx context.Context, granted bool) error {
	if err := a.store.SetPlatformGrant(ctx, core.ProviderAppleHealth, granted); err != nil {
		return err
	}
	a.logger.Info("Permission recorded", "granted", granted)
	return nil
}

// Upload stores a daily snapshot pushed by the companion app
func (a *Adapter) Upload(ctx context.Context, sample core.HealthData) error {
	granted, err := a.store.PlatformGrant(ctx, core.ProviderAppleHealth)
	if err != nil {
		return fmt.Errorf("failed to read permission: %w", err)
	}
	if !granted {
		return ErrPermissionNotGranted
	}
	if sample.Date.IsZero() {
		return errors.New("sample date is required")
	}

	start, _ := adapters.DayWindow(sample.Date)
	sample.Date = start
	sample.Provider = core.ProviderAppleHealth
	sample.Normalize()

	if err := a.store.SavePlatformSample(ctx, &sample); err != nil {
		return fmt.Errorf("failed to store sample: %w", err)
	}
	a.logger.Debug("Sample uploaded", "date", start.Format(core.DateLayout))
	return nil
}
