// Package whoop reads physiological cycles from the WHOOP developer API
package whoop

import (
	"context"
	"fitsync/internal/adapters"
	"fitsync/internal/core"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

const kilojoulesPerKilocalorie = 4.184

type cycleCollection struct {
	Records adapters.Optional[[]cycle] `json:"records"`
}

type cycle struct {
	ScoreState adapters.Optional[string]     `json:"score_state"`
	Score      adapters.Optional[cycleScore] `json:"score"`
}

type cycleScore struct {
	Strain           adapters.Number `json:"strain"`
	Kilojoule        adapters.Number `json:"kilojoule"`
	AverageHeartRate adapters.Number `json:"average_heart_rate"`
}

// Adapter implements adapters.Adapter for WHOOP. WHOOP does not track steps,
// so Steps is always zero.
type Adapter struct {
	api    *adapters.APIClient
	logger *slog.Logger
}

// New creates a WHOOP adapter; api is rooted at .../developer
func New(api *adapters.APIClient, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		api:    api,
		logger: logger.With("adapter", "whoop"),
	}
}

// Provider returns the provider type
func (a *Adapter) Provider() core.ProviderType {
	return core.ProviderWhoop
}

// Fetch sums the scored cycles that start within the calendar day of date
func (a *Adapter) Fetch(ctx context.Context, accessToken string, date time.Time) (*core.HealthData, error) {
	start, end := adapters.DayWindow(date)
	query := url.Values{
		"start": {start.Format(time.RFC3339)},
		"end":   {end.Format(time.RFC3339)},
	}

	var cycles cycleCollection
	if err := a.api.GetJSON(ctx, accessToken, "/v1/cycle", query, &cycles); err != nil {
		return nil, fmt.Errorf("failed to read cycles: %w", err)
	}

	data := adapters.NewHealthData(core.ProviderWhoop, date)

	var kilojoules, heartRate float64
	rated := 0
	for _, c := range cycles.Records.Value {
		if !c.Score.Valid {
			a.logger.Debug("Skipping unscored cycle", "score_state", c.ScoreState.Value)
			continue
		}
		score := c.Score.Value
		kilojoules += score.Kilojoule.Float()
		if score.AverageHeartRate.Valid {
			heartRate += score.AverageHeartRate.Value
			rated++
		}
	}

	data.CaloriesBurned = kilojoules / kilojoulesPerKilocalorie
	if rated > 0 && heartRate > 0 {
		data.HeartRate = adapters.Float(heartRate / float64(rated))
	}

	data.Normalize()
	return data, nil
}
