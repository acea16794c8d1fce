package core

import (
	"math"
	"time"
)

// BalanceStatus classifies a daily energy balance
type BalanceStatus string

const (
	BalanceBalanced             BalanceStatus = "balanced"
	BalanceSlightImbalance      BalanceStatus = "slight_imbalance"
	BalanceSignificantImbalance BalanceStatus = "significant_imbalance"
)

// Classification thresholds on |in - out| / out. Upper bounds are inclusive.
const (
	BalancedThreshold        = 0.10
	SlightImbalanceThreshold = 0.25
)

// DailyBalance combines calories consumed with calories burned for one date
type DailyBalance struct {
	Date          time.Time     `json:"date"`
	CaloriesIn    float64       `json:"calories_in"`
	CaloriesOut   float64       `json:"calories_out"`
	Balance       float64       `json:"balance"`
	BalanceStatus BalanceStatus `json:"balance_status"`
}

// ClassifyBalance returns the tier for a balance relative to calories out.
// caloriesOut must be positive.
func ClassifyBalance(balance, caloriesOut float64) BalanceStatus {
	percent := math.Abs(balance) / caloriesOut
	switch {
	case percent <= BalancedThreshold:
		return BalanceBalanced
	case percent <= SlightImbalanceThreshold:
		return BalanceSlightImbalance
	default:
		return BalanceSignificantImbalance
	}
}

// NewDailyBalance builds a balance, or nil when there is no energy-out signal
func NewDailyBalance(date time.Time, caloriesIn, caloriesOut float64) *DailyBalance {
	if caloriesOut <= 0 {
		return nil
	}
	balance := caloriesIn - caloriesOut
	return &DailyBalance{
		Date:          date,
		CaloriesIn:    caloriesIn,
		CaloriesOut:   caloriesOut,
		Balance:       balance,
		BalanceStatus: ClassifyBalance(balance, caloriesOut),
	}
}
