package logging

import (
	"context"
	"fitsync/internal/core"
	"log/slog"
	"time"
)

// SyncServiceLogger wraps a SyncService and logs all method calls
type SyncServiceLogger struct {
	service core.SyncService
	logger  *slog.Logger
}

// NewSyncServiceLogger creates a new logging decorator for SyncService
func NewSyncServiceLogger(service core.SyncService, logger *slog.Logger) core.SyncService {
	return &SyncServiceLogger{
		service: service,
		logger:  logger.With("interface", "SyncService"),
	}
}

func (l *SyncServiceLogger) ListConnectedDevices(ctx context.Context) []core.DeviceConnection {
	start := time.Now()
	l.logger.Debug("ListConnectedDevices called")

	devices := l.service.ListConnectedDevices(ctx)

	l.logger.Debug("ListConnectedDevices completed",
		"count", len(devices),
		"duration", time.Since(start))

	return devices
}

func (l *SyncServiceLogger) ConnectDevice(ctx context.Context, provider core.ProviderType) core.ConnectResult {
	start := time.Now()
	l.logger.Info("ConnectDevice called",
		"provider", provider)

	result := l.service.ConnectDevice(ctx, provider)
	duration := time.Since(start)

	if !result.Success {
		l.logger.Warn("ConnectDevice failed",
			"provider", provider,
			"kind", result.Kind,
			"reason", result.Error,
			"duration", duration)
		return result
	}

	l.logger.Info("ConnectDevice completed",
		"provider", provider,
		"device_id", result.Device.ID,
		"duration", duration)

	return result
}

func (l *SyncServiceLogger) SyncDevice(ctx context.Context, deviceID string, date time.Time) bool {
	start := time.Now()
	l.logger.Info("SyncDevice called",
		"device_id", deviceID,
		"date", formatDate(date))

	ok := l.service.SyncDevice(ctx, deviceID, date)

	l.logger.Info("SyncDevice completed",
		"device_id", deviceID,
		"success", ok,
		"duration", time.Since(start))

	return ok
}

func (l *SyncServiceLogger) SyncAllDevices(ctx context.Context, date time.Time) core.SyncResult {
	start := time.Now()
	l.logger.Info("SyncAllDevices called",
		"date", formatDate(date))

	result := l.service.SyncAllDevices(ctx, date)

	l.logger.Info("SyncAllDevices completed",
		"success_count", result.SuccessCount,
		"failed_count", result.FailedCount,
		"duration", time.Since(start))

	return result
}

func (l *SyncServiceLogger) DisconnectDevice(ctx context.Context, deviceID string) bool {
	start := time.Now()
	l.logger.Info("DisconnectDevice called",
		"device_id", deviceID)

	ok := l.service.DisconnectDevice(ctx, deviceID)

	l.logger.Info("DisconnectDevice completed",
		"device_id", deviceID,
		"success", ok,
		"duration", time.Since(start))

	return ok
}

func (l *SyncServiceLogger) GetActivityData(ctx context.Context, date time.Time) *core.HealthData {
	start := time.Now()
	l.logger.Debug("GetActivityData called",
		"date", formatDate(date))

	data := l.service.GetActivityData(ctx, date)

	if data == nil {
		l.logger.Debug("GetActivityData completed without data",
			"date", formatDate(date),
			"duration", time.Since(start))
		return nil
	}

	l.logger.Debug("GetActivityData completed",
		"date", formatDate(date),
		"provider", data.Provider,
		"steps", data.Steps,
		"calories_burned", data.CaloriesBurned,
		"duration", time.Since(start))

	return data
}

func formatDate(date time.Time) string {
	if date.IsZero() {
		return "today"
	}
	return date.Format(core.DateLayout)
}
