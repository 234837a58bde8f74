package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskMetrics_FiniteCapsInfinity(t *testing.T) {
	m := NeutralMetrics(time.Unix(0, 0))
	m.SortinoRatio = math.Inf(1)
	m.SharpeRatio = math.NaN()

	f := m.Finite()
	assert.Equal(t, math.MaxFloat64, f.SortinoRatio)
	assert.Equal(t, 0.0, f.SharpeRatio)
	assert.Equal(t, []string{"sharpe_ratio", "sortino_ratio"}, f.Capped)
	assert.True(t, math.IsInf(m.SortinoRatio, 1), "original left untouched")
}

func TestRiskMetrics_MarshalJSON(t *testing.T) {
	m := NeutralMetrics(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	m.SortinoRatio = math.Inf(1)

	b, err := json.Marshal(m)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, 1.0, out["beta"])
	assert.Equal(t, math.MaxFloat64, out["sortino_ratio"])
	assert.Equal(t, []any{"sortino_ratio"}, out["capped"])
	assert.Equal(t, "2025-01-02T00:00:00Z", out["last_updated"])
}

func TestPriceSeries_Tail(t *testing.T) {
	s := PriceSeries{Symbol: "X"}
	for i := 0; i < 5; i++ {
		s.Points = append(s.Points, PricePoint{Date: time.Unix(int64(i)*86400, 0), Close: float64(i + 1)})
	}
	assert.Equal(t, []float64{4, 5}, s.Tail(2).Closes())
	assert.Equal(t, 5, s.Tail(10).Len())
	assert.True(t, s.Tail(0).Empty())
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	got := Day(time.Date(2025, 3, 1, 2, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), got)
}
