package risk

import (
	"sort"
	"time"

	"PortfolioSentinel/internal/model"
)

// aligned holds daily returns of every asset (and the benchmark) over the
// dates common to all inputs.
type aligned struct {
	dates     []time.Time
	assets    map[string][]float64
	benchmark []float64 // nil without a benchmark
}

// align inner-joins the series on date and converts closes to simple
// returns. Fewer than two common dates yield empty return slices.
func align(assets map[string]model.PriceSeries, benchmark *model.PriceSeries) aligned {
	inputs := make([]model.PriceSeries, 0, len(assets)+1)
	for _, s := range assets {
		inputs = append(inputs, s)
	}
	if benchmark != nil {
		inputs = append(inputs, *benchmark)
	}
	if len(inputs) == 0 {
		return aligned{assets: map[string][]float64{}}
	}

	counts := make(map[time.Time]int)
	for _, s := range inputs {
		seen := make(map[time.Time]struct{}, len(s.Points))
		for _, p := range s.Points {
			d := model.Day(p.Date)
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			counts[d]++
		}
	}
	dates := make([]time.Time, 0, len(counts))
	for d, n := range counts {
		if n == len(inputs) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := aligned{dates: dates, assets: make(map[string][]float64, len(assets))}
	for symbol, s := range assets {
		out.assets[symbol] = returns(closesOn(s, dates))
	}
	if benchmark != nil {
		out.benchmark = returns(closesOn(*benchmark, dates))
	}
	return out
}

// closesOn picks the close for each date; the last point of a day wins.
func closesOn(s model.PriceSeries, dates []time.Time) []float64 {
	byDay := make(map[time.Time]float64, len(s.Points))
	for _, p := range s.Points {
		byDay[model.Day(p.Date)] = p.Close
	}
	closes := make([]float64, len(dates))
	for i, d := range dates {
		closes[i] = byDay[d]
	}
	return closes
}

// returns computes simple period returns. A zero previous close yields a
// zero return rather than Inf.
func returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return []float64{}
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out[i-1] = closes[i]/closes[i-1] - 1
	}
	return out
}

// portfolioReturns weights the aligned asset returns. Symbols without a
// weight, or without a series, contribute nothing.
func portfolioReturns(a aligned, weights map[string]float64) []float64 {
	n := len(a.dates) - 1
	if n < 1 {
		return []float64{}
	}
	out := make([]float64, n)
	for symbol, w := range weights {
		r, ok := a.assets[symbol]
		if !ok {
			continue
		}
		for t := range out {
			out[t] += w * r[t]
		}
	}
	return out
}
