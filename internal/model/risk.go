package model

import (
	"encoding/json"
	"math"
	"time"
)

// RiskMetrics is the full bundle produced by the risk engine. Every field is
// always populated; SortinoRatio may be +Inf when no downside was observed.
type RiskMetrics struct {
	TotalReturn      float64   `json:"total_return"`
	AnnualizedReturn float64   `json:"annualized_return"`
	Volatility       float64   `json:"volatility"`
	SharpeRatio      float64   `json:"sharpe_ratio"`
	SortinoRatio     float64   `json:"sortino_ratio"`
	Beta             float64   `json:"beta"`
	VaR95            float64   `json:"var_95"`
	CVaR95           float64   `json:"cvar_95"`
	MaxDrawdown      float64   `json:"max_drawdown"`
	InformationRatio float64   `json:"information_ratio"`
	CalculatedAt     time.Time `json:"last_updated"`

	// Capped lists fields whose non-finite values were replaced by Finite.
	Capped []string `json:"capped,omitempty"`
}

// NeutralMetrics is the bundle returned when there is nothing to measure.
func NeutralMetrics(at time.Time) RiskMetrics {
	return RiskMetrics{Beta: 1.0, CalculatedAt: at}
}

// Finite returns a copy where infinite values are clamped to ±MaxFloat64 and
// NaN to 0, recording the affected field names in Capped. JSON encoders cannot
// carry Inf, so serialize this form.
func (m RiskMetrics) Finite() RiskMetrics {
	out := m
	out.Capped = nil
	fields := []struct {
		name string
		v    *float64
	}{
		{"total_return", &out.TotalReturn},
		{"annualized_return", &out.AnnualizedReturn},
		{"volatility", &out.Volatility},
		{"sharpe_ratio", &out.SharpeRatio},
		{"sortino_ratio", &out.SortinoRatio},
		{"beta", &out.Beta},
		{"var_95", &out.VaR95},
		{"cvar_95", &out.CVaR95},
		{"max_drawdown", &out.MaxDrawdown},
		{"information_ratio", &out.InformationRatio},
	}
	for _, f := range fields {
		switch {
		case math.IsInf(*f.v, 1):
			*f.v = math.MaxFloat64
		case math.IsInf(*f.v, -1):
			*f.v = -math.MaxFloat64
		case math.IsNaN(*f.v):
			*f.v = 0
		default:
			continue
		}
		out.Capped = append(out.Capped, f.name)
	}
	return out
}

// MarshalJSON encodes the Finite form.
func (m RiskMetrics) MarshalJSON() ([]byte, error) {
	type plain RiskMetrics
	return json.Marshal(plain(m.Finite()))
}
