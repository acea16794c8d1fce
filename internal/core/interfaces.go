package core

import (
	"context"
	"time"
)

// SyncService is the public surface of the sync orchestrator.
// None of its methods return errors: failures are logged and folded into the results.
type SyncService interface {
	ListConnectedDevices(ctx context.Context) []DeviceConnection
	ConnectDevice(ctx context.Context, provider ProviderType) ConnectResult
	SyncDevice(ctx context.Context, deviceID string, date time.Time) bool
	SyncAllDevices(ctx context.Context, date time.Time) SyncResult
	DisconnectDevice(ctx context.Context, deviceID string) bool
	GetActivityData(ctx context.Context, date time.Time) *HealthData
}

// BalanceService computes daily energy balances
type BalanceService interface {
	ComputeBalance(ctx context.Context, date time.Time) *DailyBalance
}
