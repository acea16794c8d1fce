package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBalance(t *testing.T) {
	tests := []struct {
		name        string
		caloriesIn  float64
		caloriesOut float64
		want        BalanceStatus
	}{
		{"exact match", 2000, 2000, BalanceBalanced},
		{"surplus at 10 percent", 2200, 2000, BalanceBalanced},
		{"deficit at 10 percent", 1800, 2000, BalanceBalanced},
		{"just over 10 percent", 2201, 2000, BalanceSlightImbalance},
		{"surplus at 25 percent", 2500, 2000, BalanceSlightImbalance},
		{"deficit at 25 percent", 1500, 2000, BalanceSlightImbalance},
		{"surplus at 30 percent", 2600, 2000, BalanceSignificantImbalance},
		{"nothing eaten", 0, 2000, BalanceSignificantImbalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyBalance(tt.caloriesIn-tt.caloriesOut, tt.caloriesOut))
		})
	}
}

func TestNewDailyBalance(t *testing.T) {
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	t.Run("balanced scenario", func(t *testing.T) {
		b := NewDailyBalance(date, 2200, 2000)
		require.NotNil(t, b)
		assert.Equal(t, 200.0, b.Balance)
		assert.Equal(t, BalanceBalanced, b.BalanceStatus)
	})

	t.Run("significant imbalance scenario", func(t *testing.T) {
		b := NewDailyBalance(date, 2600, 2000)
		require.NotNil(t, b)
		assert.Equal(t, 600.0, b.Balance)
		assert.Equal(t, BalanceSignificantImbalance, b.BalanceStatus)
	})

	t.Run("no calories out", func(t *testing.T) {
		for _, in := range []float64{0, 1, 1500, 4000} {
			assert.Nil(t, NewDailyBalance(date, in, 0), "calories in %v", in)
		}
	})
}
