package balance

import (
	"context"
	"fitsync/internal/core"
	"fitsync/internal/deviceapi"
	"fitsync/internal/observability"
	"log/slog"
	"time"
)

// ActivitySource supplies calories burned for a day
type ActivitySource interface {
	GetActivityData(ctx context.Context, date time.Time) *core.HealthData
}

// NutritionSource supplies calories consumed for a day
type NutritionSource interface {
	DailyStats(ctx context.Context, date time.Time) (*core.NutritionStats, error)
}

// BalanceRegistry is the server-side balance endpoint
type BalanceRegistry interface {
	GetBalance(ctx context.Context, date time.Time) (*deviceapi.Balance, error)
}

// Calculator computes daily energy balances, preferring the server's figures
type Calculator struct {
	registry  BalanceRegistry
	activity  ActivitySource
	nutrition NutritionSource
	location  *time.Location
	logger    *slog.Logger
}

var _ core.BalanceService = (*Calculator)(nil)

// NewCalculator creates a balance calculator. registry may be nil.
func NewCalculator(registry BalanceRegistry, activity ActivitySource, nutrition NutritionSource, loc *time.Location, logger *slog.Logger) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		registry:  registry,
		activity:  activity,
		nutrition: nutrition,
		location:  loc,
		logger:    logger.With("component", "balance"),
	}
}

// ComputeBalance returns date's balance, or nil when calories out is unknown
// or zero. The status is always classified locally.
func (c *Calculator) ComputeBalance(ctx context.Context, date time.Time) *core.DailyBalance {
	if date.IsZero() {
		date = time.Now()
	}
	day := core.StartOfDay(date, c.location)

	if b := c.fromServer(ctx, day); b != nil {
		observability.RecordBalance("server")
		return b
	}

	b := c.fromSources(ctx, day)
	if b == nil {
		observability.RecordBalance("none")
		return nil
	}
	observability.RecordBalance("local")
	return b
}

func (c *Calculator) fromServer(ctx context.Context, day time.Time) *core.DailyBalance {
	if c.registry == nil {
		return nil
	}
	remote, err := c.registry.GetBalance(ctx, day)
	if err != nil {
		c.logger.Warn("Server balance unavailable, computing locally", "date", day.Format(core.DateLayout), "error", err)
		return nil
	}
	if remote == nil || remote.CaloriesOut <= 0 {
		return nil
	}
	return core.NewDailyBalance(day, remote.CaloriesIn, remote.CaloriesOut)
}

func (c *Calculator) fromSources(ctx context.Context, day time.Time) *core.DailyBalance {
	activity := c.activity.GetActivityData(ctx, day)
	if activity == nil || activity.CaloriesBurned <= 0 {
		return nil
	}

	stats, err := c.nutrition.DailyStats(ctx, day)
	if err != nil {
		c.logger.Error("Failed to get nutrition stats", "date", day.Format(core.DateLayout), "error", err)
		return nil
	}

	return core.NewDailyBalance(day, stats.Calories, activity.CaloriesBurned)
}
