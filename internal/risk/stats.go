package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TradingDays annualizes daily statistics.
const TradingDays = 252

var sqrtTradingDays = math.Sqrt(TradingDays)

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// stddev is the sample standard deviation (n-1). Fewer than two values give 0.
func stddev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}

// percentile returns the p-th quantile (p in [0,1]) interpolating linearly
// between closest ranks, rank = p*(n-1).
func percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (rank-float64(lo))*(sorted[hi]-sorted[lo])
}

func sub(a, b []float64) []float64 {
	n := min(len(a), len(b))
	out := make([]float64, n)
	for i := range out {
		out[i] = a[i] - b[i]
	}
	return out
}
