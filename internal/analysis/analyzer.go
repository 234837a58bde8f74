// Package analysis ties the gateway and the risk engine together to value a
// portfolio and measure its risk against a benchmark.
package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"PortfolioSentinel/internal/gateway"
	"PortfolioSentinel/internal/model"
	"PortfolioSentinel/internal/risk"
)

const (
	DefaultBenchmark = "SPY"
	DefaultDays      = 252
	historyWorkers   = 8
)

// MarketData is the subset of the gateway the analyzer needs.
type MarketData interface {
	GetPrices(ctx context.Context, symbols []string) map[string]float64
	GetHistory(ctx context.Context, symbol string, days int) (model.PriceSeries, error)
}

// Report is the outcome of one analysis run.
type Report struct {
	Valuation model.Valuation    `json:"valuation"`
	Weights   map[string]float64 `json:"weights"`
	Metrics   model.RiskMetrics  `json:"metrics"`
	Benchmark string             `json:"benchmark,omitempty"` // empty when unavailable
	Missing   []string           `json:"missing,omitempty"`   // holdings left out of the metrics
}

// Analyzer values holdings and computes their risk metrics.
type Analyzer struct {
	Data         MarketData
	Benchmark    string
	Days         int
	RiskFreeRate float64
	VaRMethod    risk.VaRMethod
	Clock        func() time.Time

	logger *zap.Logger
}

// New creates an Analyzer with default benchmark and window.
func New(data MarketData, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		Data:         data,
		Benchmark:    DefaultBenchmark,
		Days:         DefaultDays,
		RiskFreeRate: risk.DefaultRiskFreeRate,
		Clock:        time.Now,
		logger:       logger.With(zap.String("component", "analyzer")),
	}
}

// Analyze prices the holdings, derives weights from market value, pulls
// history for every priced holding and the benchmark, and computes metrics.
// Holdings whose history cannot be fetched are reported in Missing.
func (a *Analyzer) Analyze(ctx context.Context, holdings []model.Holding) (Report, error) {
	if len(holdings) == 0 {
		return Report{}, fmt.Errorf("%w: portfolio has no holdings", gateway.ErrInvalidRequest)
	}
	if err := gateway.ValidateDays(a.Days); err != nil {
		return Report{}, err
	}

	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if h.Quantity <= 0 {
			return Report{}, fmt.Errorf("%w: holding %q has quantity %v", gateway.ErrInvalidRequest, h.Symbol, h.Quantity)
		}
		symbols = append(symbols, h.Symbol)
	}

	prices := a.prices(ctx, symbols)
	valuation := risk.Value(holdings, prices)
	weights := risk.Weights(risk.MarketValues(valuation))

	var (
		mu      sync.Mutex
		series  = make(map[string]model.PriceSeries, len(weights))
		missing []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historyWorkers)
	for symbol := range weights {
		g.Go(func() error {
			s, err := a.Data.GetHistory(gctx, symbol, a.Days)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.logger.Warn("history unavailable, excluding holding",
					zap.String("symbol", symbol), zap.Error(err))
				missing = append(missing, symbol)
				return nil
			}
			series[symbol] = s
			return nil
		})
	}

	var bench *model.PriceSeries
	if a.Benchmark != "" {
		g.Go(func() error {
			s, err := a.Data.GetHistory(gctx, a.Benchmark, a.Days)
			if err != nil {
				a.logger.Warn("benchmark history unavailable",
					zap.String("benchmark", a.Benchmark), zap.Error(err))
				return nil
			}
			bench = &s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	for _, p := range valuation.Positions {
		if !p.Priced {
			missing = append(missing, p.Symbol)
		}
	}

	report := Report{
		Valuation: valuation,
		Weights:   weights,
		Missing:   missing,
		Metrics: risk.Compute(series, weights, bench, risk.Options{
			RiskFreeRate: a.RiskFreeRate,
			VaRMethod:    a.VaRMethod,
			Now:          a.Clock,
		}),
	}
	if bench != nil {
		report.Benchmark = a.Benchmark
	}
	return report, nil
}

// prices looks symbols up in batches no larger than gateway.MaxBatch.
func (a *Analyzer) prices(ctx context.Context, symbols []string) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	for len(symbols) > 0 {
		n := min(len(symbols), gateway.MaxBatch)
		for s, p := range a.Data.GetPrices(ctx, symbols[:n]) {
			out[s] = p
		}
		symbols = symbols[n:]
	}
	return out
}
