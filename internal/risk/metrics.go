package risk

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TotalReturn compounds the period returns.
func TotalReturn(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	wealth := 1.0
	for _, v := range r {
		wealth *= 1 + v
	}
	return wealth - 1
}

// AnnualizedReturn scales the arithmetic mean daily return. It is not the
// compounded figure of TotalReturn and the two are not expected to agree.
func AnnualizedReturn(r []float64) float64 {
	return mean(r) * TradingDays
}

// Volatility is the annualized sample standard deviation.
func Volatility(r []float64) float64 {
	return stddev(r) * sqrtTradingDays
}

func excess(r []float64, riskFreeRate float64) []float64 {
	daily := riskFreeRate / TradingDays
	out := make([]float64, len(r))
	for i, v := range r {
		out[i] = v - daily
	}
	return out
}

// Sharpe is the annualized mean excess return over return volatility.
func Sharpe(r []float64, riskFreeRate float64) float64 {
	sd := stddev(r)
	if len(r) == 0 || sd == 0 {
		return 0
	}
	return mean(excess(r, riskFreeRate)) / sd * sqrtTradingDays
}

// Sortino divides by the deviation of negative excess returns only. With no
// measurable downside the ratio is +Inf.
func Sortino(r []float64, riskFreeRate float64) float64 {
	ex := excess(r, riskFreeRate)
	var downside []float64
	for _, v := range ex {
		if v < 0 {
			downside = append(downside, v)
		}
	}
	dd := stddev(downside)
	if len(downside) == 0 || dd == 0 {
		return math.Inf(1)
	}
	return mean(ex) / dd * sqrtTradingDays
}

// VaRMethod selects how value at risk is estimated.
type VaRMethod int

const (
	// Historical takes the empirical quantile of the returns.
	Historical VaRMethod = iota
	// Parametric assumes normal returns: mean + z*stddev.
	Parametric
)

func (m VaRMethod) String() string {
	if m == Parametric {
		return "parametric"
	}
	return "historical"
}

// VaR is the return threshold not breached with the given confidence
// (0.95 for the 95% VaR). It is negative for a loss.
func VaR(r []float64, confidence float64, method VaRMethod) float64 {
	if len(r) == 0 {
		return 0
	}
	if method == Parametric {
		z := -2.33
		if confidence == 0.95 {
			z = -1.65
		}
		return mean(r) + z*stddev(r)
	}
	return percentile(r, 1-confidence)
}

// CVaR is the mean of the returns at or below var. When none qualify it
// equals var.
func CVaR(r []float64, v float64) float64 {
	var sum float64
	var n int
	for _, x := range r {
		if x <= v {
			sum += x
			n++
		}
	}
	if n == 0 {
		return v
	}
	return sum / float64(n)
}

// Beta is cov(p, b) / var(b). Degenerate inputs give the market beta 1.
func Beta(p, b []float64) float64 {
	n := min(len(p), len(b))
	if n < 2 {
		return 1
	}
	p, b = p[:n], b[:n]
	v := stat.Variance(b, nil)
	if v == 0 || math.IsNaN(v) {
		return 1
	}
	return stat.Covariance(p, b, nil) / v
}

// InformationRatio is the mean active return over the tracking error.
func InformationRatio(p, b []float64) float64 {
	active := sub(p, b)
	sd := stddev(active)
	if len(active) == 0 || sd == 0 {
		return 0
	}
	return mean(active) / sd
}

// DrawdownResult describes the deepest peak-to-trough fall of the wealth
// index. Peak and Trough index into the return series; Current is the
// drawdown at the last observation.
type DrawdownResult struct {
	MaxDrawdown float64
	Peak        int
	Trough      int
	Current     float64
}

// Drawdown scans the compounded wealth index for its deepest decline.
func Drawdown(r []float64) DrawdownResult {
	res := DrawdownResult{}
	if len(r) < 2 {
		return res
	}
	wealth, runningMax := 1.0, math.Inf(-1)
	peak := 0
	for i, v := range r {
		wealth *= 1 + v
		if wealth > runningMax {
			runningMax = wealth
			peak = i
		}
		dd := 0.0
		if runningMax > 0 {
			dd = (wealth - runningMax) / runningMax
		}
		if dd < res.MaxDrawdown {
			res.MaxDrawdown = dd
			res.Peak = peak
			res.Trough = i
		}
		res.Current = dd
	}
	return res
}

// MaxDrawdown is the worst relative fall from a running peak (≤ 0).
func MaxDrawdown(r []float64) float64 {
	return Drawdown(r).MaxDrawdown
}
