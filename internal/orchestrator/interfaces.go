package orchestrator

import (
	"context"
	"fitsync/internal/adapters"
	"fitsync/internal/core"
	"fitsync/internal/deviceapi"
	"fitsync/internal/providers"
	"time"
)

// TokenManager is the OAuth connection manager as the orchestrator sees it
type TokenManager interface {
	Connect(ctx context.Context, provider core.ProviderType) core.ConnectionOutcome
	Refresh(ctx context.Context, provider core.ProviderType, refreshToken string) (string, bool)
	GetTokens(ctx context.Context, provider core.ProviderType) core.CredentialPair
	ClearTokens(ctx context.Context, provider core.ProviderType) error
}

// DeviceRegistry is the authoritative server-side device registry
type DeviceRegistry interface {
	ListDevices(ctx context.Context) ([]core.DeviceConnection, error)
	ConnectDevice(ctx context.Context, req deviceapi.ConnectRequest) (*core.DeviceConnection, error)
	ReportSync(ctx context.Context, deviceID string, report deviceapi.SyncReport) error
	DeleteDevice(ctx context.Context, deviceID string) error
	GetActivity(ctx context.Context, start, end time.Time) ([]*core.HealthData, error)
}

// PlatformAuthorizer grants access to a provider through its native platform
// SDK instead of OAuth
type PlatformAuthorizer interface {
	RequestPermission(ctx context.Context) (bool, error)
}

// ProviderCatalog resolves static provider configuration
type ProviderCatalog interface {
	Get(provider core.ProviderType) (providers.Config, error)
}

// AdapterRegistry resolves the data adapter for a provider
type AdapterRegistry interface {
	Get(provider core.ProviderType) (adapters.Adapter, error)
}
