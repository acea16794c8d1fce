// Package unsupported provides adapters for providers whose data cannot be
// reached from a server process
package unsupported

import (
	"context"
	"fitsync/internal/core"
	"fmt"
	"log/slog"
	"time"
)

// Adapter fails every fetch without touching the network
type Adapter struct {
	provider core.ProviderType
	reason   string
	logger   *slog.Logger
}

// New creates an adapter for provider that always reports reason
func New(provider core.ProviderType, reason string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		provider: provider,
		reason:   reason,
		logger:   logger.With("adapter", "unsupported", "provider", provider),
	}
}

// Provider returns the provider type
func (a *Adapter) Provider() core.ProviderType {
	return a.provider
}

// Fetch logs the missing capability and returns core.ErrUnsupportedProvider
func (a *Adapter) Fetch(ctx context.Context, accessToken string, date time.Time) (*core.HealthData, error) {
	a.logger.Warn("Data fetch not supported", "reason", a.reason)
	return nil, fmt.Errorf("%w: %s %s", core.ErrUnsupportedProvider, a.provider, a.reason)
}
