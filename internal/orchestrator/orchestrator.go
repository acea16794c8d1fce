// Package orchestrator coordinates device connection, sync and disconnection
// across the connection manager, the data adapters and the server registry.
package orchestrator

import (
	"context"
	"errors"
	"fitsync/internal/core"
	"fitsync/internal/deviceapi"
	"fitsync/internal/idgen"
	"fitsync/internal/observability"
	"fitsync/internal/storage"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options holds the optional collaborators of an Orchestrator
type Options struct {
	// Platforms authorizes SDK-capability providers, keyed by provider
	Platforms map[core.ProviderType]PlatformAuthorizer
	// Location defines "today" and calendar-day boundaries; UTC when nil
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
}

// Orchestrator implements core.SyncService
type Orchestrator struct {
	providers ProviderCatalog
	adapters  AdapterRegistry
	tokens    TokenManager
	devices   storage.DeviceCache
	registry  DeviceRegistry
	platforms map[core.ProviderType]PlatformAuthorizer
	location  *time.Location
	logger    *slog.Logger
	now       func() time.Time
}

var _ core.SyncService = (*Orchestrator)(nil)

// New creates a sync orchestrator
func New(providers ProviderCatalog, adapterRegistry AdapterRegistry, tokens TokenManager, devices storage.DeviceCache, registry DeviceRegistry, opts Options) *Orchestrator {
	o := &Orchestrator{
		providers: providers,
		adapters:  adapterRegistry,
		tokens:    tokens,
		devices:   devices,
		registry:  registry,
		platforms: opts.Platforms,
		location:  opts.Location,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if o.platforms == nil {
		o.platforms = make(map[core.ProviderType]PlatformAuthorizer)
	}
	if o.location == nil {
		o.location = time.UTC
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "orchestrator")
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// ListConnectedDevices returns the user's devices, refreshing the local cache
// from the server registry. When the registry is unreachable the cached list
// is returned, which is empty if nothing was ever cached.
func (o *Orchestrator) ListConnectedDevices(ctx context.Context) []core.DeviceConnection {
	remote, err := o.registry.ListDevices(ctx)
	if err != nil {
		o.logger.Warn("Device registry unavailable, using local cache", "error", err)
	} else {
		devices := make([]*core.DeviceConnection, len(remote))
		for i := range remote {
			devices[i] = &remote[i]
		}
		if err := o.devices.ReplaceDevices(ctx, devices); err != nil {
			o.logger.Error("Failed to refresh device cache", "error", err)
		}
	}

	cached, err := o.devices.ListDevices(ctx)
	if err != nil {
		o.logger.Error("Failed to read device cache", "error", err)
		return []core.DeviceConnection{}
	}

	result := make([]core.DeviceConnection, 0, len(cached))
	for _, device := range cached {
		if device.Status == core.DeviceStatusDisconnected {
			continue
		}
		result = append(result, *device)
	}
	return result
}

// ConnectDevice authorizes provider and records the resulting connection.
// Registration with the server is best effort: a local id is used when it fails.
func (o *Orchestrator) ConnectDevice(ctx context.Context, provider core.ProviderType) core.ConnectResult {
	logger := o.logger.With("provider", provider)

	result := o.authorize(ctx, provider)
	observability.RecordConnect(string(provider), string(result.Kind))
	if !result.Success {
		return result
	}

	cfg, _ := o.providers.Get(provider)
	device, err := o.registry.ConnectDevice(ctx, deviceapi.ConnectRequest{
		Provider: provider,
		Name:     cfg.DisplayName,
	})
	if err != nil {
		logger.Warn("Device registration failed, keeping local connection", "error", err)
		device = &core.DeviceConnection{
			ID:       o.localDeviceID(ctx, provider),
			Name:     cfg.DisplayName,
			Provider: provider,
		}
	}
	device.Provider = provider
	device.Status = core.DeviceStatusConnected
	if device.Name == "" {
		device.Name = cfg.DisplayName
	}
	if !o.hasActiveDevice(ctx, device.ID) {
		device.IsPrimary = true
	}

	if err := o.devices.UpsertDevice(ctx, device); err != nil {
		logger.Error("Failed to cache device", "device_id", device.ID, "error", err)
	}

	logger.Info("Device connected", "device_id", device.ID)
	result.Device = device
	return result
}

func (o *Orchestrator) authorize(ctx context.Context, provider core.ProviderType) core.ConnectResult {
	cfg, err := o.providers.Get(provider)
	if err != nil {
		return core.ConnectResult{Kind: core.OutcomeUnsupported, Error: err.Error()}
	}

	if cfg.Capability == core.CapabilitySDK {
		platform, ok := o.platforms[provider]
		if !ok {
			return core.ConnectResult{
				Kind:  core.OutcomeUnsupported,
				Error: fmt.Sprintf("%s: no platform bridge configured", cfg.DisplayName),
			}
		}
		granted, err := platform.RequestPermission(ctx)
		if err != nil {
			o.logger.Error("Platform permission check failed", "provider", provider, "error", err)
			return core.ConnectResult{Kind: core.OutcomeNetwork, Error: err.Error()}
		}
		if !granted {
			return core.ConnectResult{
				Kind:  core.OutcomeRejected,
				Error: fmt.Sprintf("%s permission has not been granted on the device", cfg.DisplayName),
			}
		}
		return core.ConnectResult{Success: true, Kind: core.OutcomeSuccess}
	}

	outcome := o.tokens.Connect(ctx, provider)
	if !outcome.Success {
		return core.ConnectResult{Kind: outcome.Kind, Error: outcome.Error}
	}
	return core.ConnectResult{Success: true, Kind: core.OutcomeSuccess}
}

// localDeviceID reuses a cached id for provider so reconnecting does not
// duplicate the device
func (o *Orchestrator) localDeviceID(ctx context.Context, provider core.ProviderType) string {
	cached, err := o.devices.ListDevices(ctx)
	if err == nil {
		for _, device := range cached {
			if device.Provider == provider {
				return device.ID
			}
		}
	}
	return idgen.NewDevice()
}

func (o *Orchestrator) hasActiveDevice(ctx context.Context, exceptID string) bool {
	cached, err := o.devices.ListDevices(ctx)
	if err != nil {
		return false
	}
	for _, device := range cached {
		if device.ID != exceptID && device.Status != core.DeviceStatusDisconnected {
			return true
		}
	}
	return false
}

// SyncDevice fetches date's data for one device and reports it to the
// server. A zero date means today. It returns false on any failure.
func (o *Orchestrator) SyncDevice(ctx context.Context, deviceID string, date time.Time) (ok bool) {
	start := o.now()
	logger := o.logger.With("device_id", deviceID)

	device, err := o.resolveDevice(ctx, deviceID)
	if err != nil {
		logger.Warn("Sync skipped", "error", err)
		return false
	}
	logger = logger.With("provider", device.Provider)

	if device.Status == core.DeviceStatusDisconnected {
		logger.Warn("Sync skipped for disconnected device")
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Sync panicked", "panic", r)
			o.setStatus(ctx, device.ID, core.DeviceStatusError, nil)
			ok = false
		}
		observability.RecordDeviceSync(string(device.Provider), ok, o.now().Sub(start))
	}()

	day := o.day(date)
	o.setStatus(ctx, device.ID, core.DeviceStatusSyncing, nil)

	data, err := o.fetch(ctx, device, day)
	if err != nil {
		logger.Warn("Sync failed", "date", day.Format(core.DateLayout), "error", err)
		o.setStatus(ctx, device.ID, core.DeviceStatusError, nil)
		return false
	}

	syncedAt := o.now()
	o.setStatus(ctx, device.ID, core.DeviceStatusConnected, &syncedAt)

	o.bestEffort("report sync", func() error {
		return o.registry.ReportSync(ctx, device.ID, deviceapi.SyncReport{
			SyncedAt: syncedAt,
			Data:     deviceapi.NewActivity(data),
		})
	})

	logger.Info("Device synced",
		"date", day.Format(core.DateLayout),
		"steps", data.Steps,
		"duration", o.now().Sub(start))
	return true
}

// SyncAllDevices syncs every CONNECTED or ERROR device concurrently. One
// device failing never affects the others.
func (o *Orchestrator) SyncAllDevices(ctx context.Context, date time.Time) core.SyncResult {
	var targets []core.DeviceConnection
	for _, device := range o.ListConnectedDevices(ctx) {
		if device.Syncable() {
			targets = append(targets, device)
		}
	}

	var succeeded, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(len(core.AllProviders))
	for _, device := range targets {
		g.Go(func() error {
			if o.SyncDevice(ctx, device.ID, date) {
				succeeded.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	result := core.SyncResult{
		SuccessCount: int(succeeded.Load()),
		FailedCount:  int(failed.Load()),
	}
	observability.RecordBatchCompleted(o.now())
	o.logger.Info("Batch sync completed",
		"devices", len(targets),
		"success", result.SuccessCount,
		"failed", result.FailedCount)
	return result
}

// DisconnectDevice clears the provider's credentials and marks the device
// DISCONNECTED. It returns true whenever the local credentials were cleared,
// including on repeated calls.
func (o *Orchestrator) DisconnectDevice(ctx context.Context, deviceID string) bool {
	logger := o.logger.With("device_id", deviceID)

	device, err := o.resolveDevice(ctx, deviceID)
	if err != nil {
		logger.Warn("Disconnect skipped", "error", err)
		return false
	}

	if err := o.tokens.ClearTokens(ctx, device.Provider); err != nil {
		logger.Error("Failed to clear credentials", "provider", device.Provider, "error", err)
		return false
	}

	o.bestEffort("delete device", func() error {
		return o.registry.DeleteDevice(ctx, device.ID)
	})

	o.setStatus(ctx, device.ID, core.DeviceStatusDisconnected, nil)

	logger.Info("Device disconnected", "provider", device.Provider)
	return true
}

// GetActivityData returns date's activity from the server aggregate, falling
// back to the first CONNECTED device that yields data. Nil means no data.
func (o *Orchestrator) GetActivityData(ctx context.Context, date time.Time) *core.HealthData {
	day := o.day(date)

	activities, err := o.registry.GetActivity(ctx, day, day)
	if err != nil {
		o.logger.Warn("Server activity unavailable, querying devices", "error", err)
	} else {
		for _, activity := range activities {
			if activity != nil && sameDay(activity.Date, day) {
				return activity
			}
		}
	}

	cached, err := o.devices.ListDevices(ctx)
	if err != nil {
		o.logger.Error("Failed to read device cache", "error", err)
		return nil
	}
	for _, device := range cached {
		if device.Status != core.DeviceStatusConnected {
			continue
		}
		data, err := o.safeFetch(ctx, device, day)
		if err != nil {
			o.logger.Warn("Device activity unavailable", "device_id", device.ID, "provider", device.Provider, "error", err)
			continue
		}
		return data
	}

	return nil
}

// resolveDevice looks in the cache first, then in the server registry
func (o *Orchestrator) resolveDevice(ctx context.Context, deviceID string) (*core.DeviceConnection, error) {
	device, err := o.devices.GetDevice(ctx, deviceID)
	if err == nil {
		return device, nil
	}
	if !errors.Is(err, core.ErrDeviceNotFound) {
		o.logger.Error("Failed to read device cache", "device_id", deviceID, "error", err)
	}

	remote, err := o.registry.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrDeviceNotFound, deviceID)
	}
	for i := range remote {
		if remote[i].ID == deviceID {
			device := remote[i]
			if err := o.devices.UpsertDevice(ctx, &device); err != nil {
				o.logger.Error("Failed to cache device", "device_id", deviceID, "error", err)
			}
			return &device, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", core.ErrDeviceNotFound, deviceID)
}

// safeFetch is fetch with adapter panics turned into errors
func (o *Orchestrator) safeFetch(ctx context.Context, device *core.DeviceConnection, day time.Time) (data *core.HealthData, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("adapter panicked: %v", r)
		}
	}()
	return o.fetch(ctx, device, day)
}

// fetch resolves the adapter and the device's own provider credentials,
// refreshing the access token when it has expired or the provider rejects it
func (o *Orchestrator) fetch(ctx context.Context, device *core.DeviceConnection, day time.Time) (*core.HealthData, error) {
	cfg, err := o.providers.Get(device.Provider)
	if err != nil {
		return nil, err
	}
	adapter, err := o.adapters.Get(device.Provider)
	if err != nil {
		return nil, err
	}
	if adapter.Provider() != device.Provider {
		return nil, fmt.Errorf("%w: adapter for %s registered under %s", core.ErrNoAdapter, adapter.Provider(), device.Provider)
	}

	var token string
	var pair core.CredentialPair
	refreshed := false
	if cfg.Capability != core.CapabilitySDK {
		pair = o.tokens.GetTokens(ctx, device.Provider)
		if !pair.HasAccessToken() {
			return nil, fmt.Errorf("%w for %s", core.ErrNoCredentials, device.Provider)
		}
		token = pair.AccessToken

		if pair.Expired(o.now()) {
			fresh, ok := o.refresh(ctx, device.Provider, pair.RefreshToken)
			if !ok {
				return nil, fmt.Errorf("%w: stored token for %s could not be refreshed", core.ErrTokenExpired, device.Provider)
			}
			token, refreshed = fresh, true
		}
	}

	data, err := adapter.Fetch(ctx, token, day)
	if errors.Is(err, core.ErrTokenExpired) && !refreshed && pair.RefreshToken != "" {
		if fresh, ok := o.refresh(ctx, device.Provider, pair.RefreshToken); ok {
			data, err = adapter.Fetch(ctx, fresh, day)
		}
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.New("adapter returned no data")
	}

	data.Provider = device.Provider
	data.Normalize()
	return data, nil
}

func (o *Orchestrator) refresh(ctx context.Context, provider core.ProviderType, refreshToken string) (string, bool) {
	if refreshToken == "" {
		return "", false
	}
	token, ok := o.tokens.Refresh(ctx, provider, refreshToken)
	observability.RecordTokenRefresh(string(provider), ok)
	return token, ok
}

func (o *Orchestrator) setStatus(ctx context.Context, deviceID string, status core.DeviceStatus, syncedAt *time.Time) {
	if err := o.devices.UpdateDeviceStatus(ctx, deviceID, status, syncedAt); err != nil {
		o.logger.Error("Failed to update device status", "device_id", deviceID, "status", status, "error", err)
	}
}

// bestEffort runs a secondary call whose failure is logged and never propagated
func (o *Orchestrator) bestEffort(operation string, fn func() error) {
	if err := fn(); err != nil {
		o.logger.Warn("Best-effort call failed", "operation", operation, "error", err)
	}
}

// day maps date to midnight of its calendar day in the user's timezone;
// the zero date means today
func (o *Orchestrator) day(date time.Time) time.Time {
	if date.IsZero() {
		return core.StartOfDay(o.now(), o.location)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, o.location)
}

func sameDay(a, b time.Time) bool {
	return a.Format(core.DateLayout) == b.Format(core.DateLayout)
}
