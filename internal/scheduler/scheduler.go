package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fitsync/internal/core"
)

// Syncer runs a batch sync over every connected device
type Syncer interface {
	SyncAllDevices(ctx context.Context, date time.Time) core.SyncResult
}

// Scheduler triggers a batch sync on a fixed interval
type Scheduler struct {
	syncer   Syncer
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(syncer Syncer, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		syncer:   syncer,
		interval: interval,
		stopChan: make(chan struct{}),
		logger:   logger,
	}
}

// Start begins the scheduler loop. It blocks until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Scheduler started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-s.stopChan:
			s.logger.Info("Scheduler stopped")
			return
		}
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// tick performs one batch sync for today
func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	result := s.syncer.SyncAllDevices(ctx, time.Time{})

	s.logger.Info("Scheduled sync completed",
		"success_count", result.SuccessCount,
		"failed_count", result.FailedCount,
		"duration", time.Since(start))
}
