// Package risk computes portfolio risk metrics from daily price series. All
// functions are pure; degenerate input yields documented sentinel values
// instead of errors.
package risk

import (
	"time"

	"PortfolioSentinel/internal/model"
)

// DefaultRiskFreeRate is the annual risk-free rate used when none is given.
const DefaultRiskFreeRate = 0.045

// DefaultConfidence is the VaR/CVaR confidence level.
const DefaultConfidence = 0.95

// Options tunes Compute. The zero value is usable.
type Options struct {
	RiskFreeRate float64 // annual; zero selects DefaultRiskFreeRate
	VaRMethod    VaRMethod
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.RiskFreeRate == 0 {
		o.RiskFreeRate = DefaultRiskFreeRate
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Compute aligns the asset series (and the optional benchmark) on date,
// derives the weighted portfolio return series and fills every metric.
// Without a weighted asset series or overlapping history the neutral bundle
// is returned.
func Compute(assets map[string]model.PriceSeries, weights map[string]float64, benchmark *model.PriceSeries, opts Options) model.RiskMetrics {
	opts = opts.withDefaults()
	now := opts.Now()
	if !hasWeightedSeries(assets, weights) {
		return model.NeutralMetrics(now)
	}

	a := align(assets, benchmark)
	r := portfolioReturns(a, weights)
	if len(r) == 0 {
		return model.NeutralMetrics(now)
	}

	v := VaR(r, DefaultConfidence, opts.VaRMethod)
	m := model.RiskMetrics{
		TotalReturn:      TotalReturn(r),
		AnnualizedReturn: AnnualizedReturn(r),
		Volatility:       Volatility(r),
		SharpeRatio:      Sharpe(r, opts.RiskFreeRate),
		SortinoRatio:     Sortino(r, opts.RiskFreeRate),
		Beta:             1,
		VaR95:            v,
		CVaR95:           CVaR(r, v),
		MaxDrawdown:      MaxDrawdown(r),
		CalculatedAt:     now,
	}
	if benchmark != nil {
		m.Beta = Beta(r, a.benchmark)
		m.InformationRatio = InformationRatio(r, a.benchmark)
	}
	return m
}

// hasWeightedSeries reports whether any weighted symbol carries data; the
// benchmark alone never forms portfolio rows.
func hasWeightedSeries(assets map[string]model.PriceSeries, weights map[string]float64) bool {
	for symbol, s := range assets {
		if _, ok := weights[symbol]; ok && !s.Empty() {
			return true
		}
	}
	return false
}
