// Package googlefit reads daily aggregates from the Google Fit datasets API
package googlefit

import (
	"context"
	"fitsync/internal/adapters"
	"fitsync/internal/core"
	"fmt"
	"log/slog"
	"time"
)

// Merged data sources maintained by Google Play services
const (
	sourceSteps         = "derived:com.google.step_count.delta:com.google.android.gms:estimated_steps"
	sourceCalories      = "derived:com.google.calories.expended:com.google.android.gms:merge_calories_expended"
	sourceActiveMinutes = "derived:com.google.active_minutes:com.google.android.gms:merge_active_minutes"
	sourceHeartRate     = "derived:com.google.heart_rate.bpm:com.google.android.gms:merge_heart_rate_bpm"
	sourceDistance      = "derived:com.google.distance.delta:com.google.android.gms:merge_distance_delta"
	sourceWeight        = "derived:com.google.weight:com.google.android.gms:merge_weight"
)

type dataset struct {
	Point adapters.Optional[[]dataPoint] `json:"point"`
}

type dataPoint struct {
	Value adapters.Optional[[]pointValue] `json:"value"`
}

type pointValue struct {
	IntVal adapters.Number `json:"intVal"`
	FpVal  adapters.Number `json:"fpVal"`
}

// values calls fn for every point value in order
func (d *dataset) values(fn func(pointValue)) {
	for _, p := range d.Point.Value {
		for _, v := range p.Value.Value {
			fn(v)
		}
	}
}

func (d *dataset) sumInt() int {
	total := 0
	d.values(func(v pointValue) { total += v.IntVal.Int() })
	return total
}

func (d *dataset) sumFloat() float64 {
	total := 0.0
	d.values(func(v pointValue) { total += v.FpVal.Float() })
	return total
}

// meanFloat returns false when the dataset has no floating point values
func (d *dataset) meanFloat() (float64, bool) {
	total, n := 0.0, 0
	d.values(func(v pointValue) {
		if v.FpVal.Valid {
			total += v.FpVal.Value
			n++
		}
	})
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

// lastFloat returns the latest floating point value
func (d *dataset) lastFloat() (float64, bool) {
	last, ok := 0.0, false
	d.values(func(v pointValue) {
		if v.FpVal.Valid {
			last, ok = v.FpVal.Value, true
		}
	})
	return last, ok
}

// Adapter implements adapters.Adapter for Google Fit
type Adapter struct {
	api    *adapters.APIClient
	logger *slog.Logger
}

// New creates a Google Fit adapter; api is rooted at .../fitness/v1/users/me
func New(api *adapters.APIClient, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		api:    api,
		logger: logger.With("adapter", "googlefit"),
	}
}

// Provider returns the provider type
func (a *Adapter) Provider() core.ProviderType {
	return core.ProviderGoogleFit
}

// Fetch reads steps (required) plus calories, active minutes, heart rate,
// distance and weight (best effort) for the calendar day of date
func (a *Adapter) Fetch(ctx context.Context, accessToken string, date time.Time) (*core.HealthData, error) {
	start, end := adapters.DayWindow(date)
	window := fmt.Sprintf("%d-%d", start.UnixNano(), end.UnixNano())
	data := adapters.NewHealthData(core.ProviderGoogleFit, date)

	var steps dataset
	if err := a.read(ctx, accessToken, sourceSteps, window, &steps); err != nil {
		return nil, fmt.Errorf("failed to read steps: %w", err)
	}
	data.Steps = steps.sumInt()

	var calories dataset
	if err := a.read(ctx, accessToken, sourceCalories, window, &calories); err != nil {
		a.logger.Warn("Calories unavailable", "error", err)
	} else {
		data.CaloriesBurned = calories.sumFloat()
	}

	var active dataset
	if err := a.read(ctx, accessToken, sourceActiveMinutes, window, &active); err != nil {
		a.logger.Warn("Active minutes unavailable", "error", err)
	} else {
		data.ActiveMinutes = active.sumInt()
	}

	var heart dataset
	if err := a.read(ctx, accessToken, sourceHeartRate, window, &heart); err != nil {
		a.logger.Warn("Heart rate unavailable", "error", err)
	} else if bpm, ok := heart.meanFloat(); ok {
		data.HeartRate = adapters.Float(bpm)
	}

	var distance dataset
	if err := a.read(ctx, accessToken, sourceDistance, window, &distance); err != nil {
		a.logger.Warn("Distance unavailable", "error", err)
	} else if meters := distance.sumFloat(); meters > 0 {
		data.Distance = adapters.Float(meters)
	}

	var weight dataset
	if err := a.read(ctx, accessToken, sourceWeight, window, &weight); err != nil {
		a.logger.Warn("Weight unavailable", "error", err)
	} else if kg, ok := weight.lastFloat(); ok {
		data.Weight = adapters.Float(kg)
	}

	data.Normalize()
	return data, nil
}

func (a *Adapter) read(ctx context.Context, accessToken, source, window string, out *dataset) error {
	return a.api.GetJSON(ctx, accessToken, "/dataSources/"+source+"/datasets/"+window, nil, out)
}
