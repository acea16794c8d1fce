package storage

import (
	"context"
	"fitsync/internal/core"
	"time"
)

// DeviceCache is the local read-through cache of the server device registry
type DeviceCache interface {
	ListDevices(ctx context.Context) ([]*core.DeviceConnection, error)
	GetDevice(ctx context.Context, id string) (*core.DeviceConnection, error)
	UpsertDevice(ctx context.Context, device *core.DeviceConnection) error
	// ReplaceDevices mirrors the server list. Local DISCONNECTED tombstones are kept.
	ReplaceDevices(ctx context.Context, devices []*core.DeviceConnection) error
	UpdateDeviceStatus(ctx context.Context, id string, status core.DeviceStatus, lastSyncAt *time.Time) error
}

// PlatformSamples stores daily snapshots pushed by a platform SDK bridge
type PlatformSamples interface {
	SavePlatformSample(ctx context.Context, sample *core.HealthData) error
	GetPlatformSample(ctx context.Context, provider core.ProviderType, date time.Time) (*core.HealthData, error)
	SetPlatformGrant(ctx context.Context, provider core.ProviderType, granted bool) error
	PlatformGrant(ctx context.Context, provider core.ProviderType) (bool, error)
}

// Storage defines the interface for data persistence
type Storage interface {
	DeviceCache
	PlatformSamples

	// Encrypted credential values (see credentials.Backend)
	Get(ctx context.Context, key string) ([]byte, error)
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
