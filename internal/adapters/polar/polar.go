// Package polar reads daily activity from the Polar AccessLink API
package polar

import (
	"context"
	"fitsync/internal/adapters"
	"fitsync/internal/core"
	"fmt"
	"log/slog"
	"time"
)

type dailyActivity struct {
	ActiveDuration    adapters.Optional[string] `json:"active_duration"`
	Calories          adapters.Number           `json:"calories"`
	Steps             adapters.Number           `json:"steps"`
	DistanceFromSteps adapters.Number           `json:"distance_from_steps"`
}

// Adapter implements adapters.Adapter for Polar
type Adapter struct {
	api    *adapters.APIClient
	logger *slog.Logger
}

// New creates a Polar adapter; api is rooted at https://www.polaraccesslink.com
func New(api *adapters.APIClient, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		api:    api,
		logger: logger.With("adapter", "polar"),
	}
}

// Provider returns the provider type
func (a *Adapter) Provider() core.ProviderType {
	return core.ProviderPolar
}

// Fetch reads the daily activity summary for the calendar day of date
func (a *Adapter) Fetch(ctx context.Context, accessToken string, date time.Time) (*core.HealthData, error) {
	var activity dailyActivity
	if err := a.api.GetJSON(ctx, accessToken, "/v3/users/activities/"+date.Format(core.DateLayout), nil, &activity); err != nil {
		return nil, fmt.Errorf("failed to read daily activity: %w", err)
	}

	data := adapters.NewHealthData(core.ProviderPolar, date)
	data.Steps = activity.Steps.Int()
	data.CaloriesBurned = activity.Calories.Float()
	if activity.DistanceFromSteps.Float() > 0 {
		data.Distance = activity.DistanceFromSteps.Ptr()
	}

	if duration := activity.ActiveDuration.Value; duration != "" {
		active, err := parseISODuration(duration)
		if err != nil {
			a.logger.Warn("Ignoring unparseable active duration", "value", duration, "error", err)
		} else {
			data.ActiveMinutes = int(active / time.Minute)
		}
	}

	data.Normalize()
	return data, nil
}
