// Package fitbit reads the daily activity summary from the Fitbit Web API
package fitbit

import (
	"context"
	"fitsync/internal/adapters"
	"fitsync/internal/core"
	"fmt"
	"log/slog"
	"time"
)

type activitySummary struct {
	Summary struct {
		Steps               adapters.Number                       `json:"steps"`
		CaloriesOut         adapters.Number                       `json:"caloriesOut"`
		FairlyActiveMinutes adapters.Number                       `json:"fairlyActiveMinutes"`
		VeryActiveMinutes   adapters.Number                       `json:"veryActiveMinutes"`
		RestingHeartRate    adapters.Number                       `json:"restingHeartRate"`
		Distances           adapters.Optional[[]activityDistance] `json:"distances"`
	} `json:"summary"`
}

type activityDistance struct {
	Activity adapters.Optional[string] `json:"activity"`
	Distance adapters.Number           `json:"distance"`
}

type weightLog struct {
	Weight adapters.Optional[[]weightEntry] `json:"weight"`
}

type weightEntry struct {
	Weight adapters.Number `json:"weight"`
}

// Adapter implements adapters.Adapter for Fitbit
type Adapter struct {
	api    *adapters.APIClient
	logger *slog.Logger
}

// New creates a Fitbit adapter; api is rooted at https://api.fitbit.com.
// Requests carry no Accept-Language header, so Fitbit answers in metric units.
func New(api *adapters.APIClient, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		api:    api,
		logger: logger.With("adapter", "fitbit"),
	}
}

// Provider returns the provider type
func (a *Adapter) Provider() core.ProviderType {
	return core.ProviderFitbit
}

// Fetch reads the activity summary and, best effort, the latest weight log of the day
func (a *Adapter) Fetch(ctx context.Context, accessToken string, date time.Time) (*core.HealthData, error) {
	day := date.Format(core.DateLayout)

	var activity activitySummary
	if err := a.api.GetJSON(ctx, accessToken, "/1/user/-/activities/date/"+day+".json", nil, &activity); err != nil {
		return nil, fmt.Errorf("failed to read activity summary: %w", err)
	}

	summary := activity.Summary
	data := adapters.NewHealthData(core.ProviderFitbit, date)
	data.Steps = summary.Steps.Int()
	data.CaloriesBurned = summary.CaloriesOut.Float()
	data.ActiveMinutes = summary.FairlyActiveMinutes.Int() + summary.VeryActiveMinutes.Int()
	if summary.RestingHeartRate.Float() > 0 {
		data.HeartRate = summary.RestingHeartRate.Ptr()
	}
	for _, d := range summary.Distances.Value {
		if d.Activity.Value == "total" && d.Distance.Valid {
			data.Distance = adapters.Float(d.Distance.Value * 1000) // km
			break
		}
	}

	var weights weightLog
	if err := a.api.GetJSON(ctx, accessToken, "/1/user/-/body/log/weight/date/"+day+".json", nil, &weights); err != nil {
		a.logger.Warn("Weight log unavailable", "error", err)
	} else {
		entries := weights.Weight.Value
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].Weight.Valid {
				data.Weight = entries[i].Weight.Ptr()
				break
			}
		}
	}

	data.Normalize()
	return data, nil
}
