package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"PortfolioSentinel/internal/metrics"
	"PortfolioSentinel/internal/model"
)

// Chain tries providers strictly in order and always ends with a Synthetic
// provider.
type Chain struct {
	Timeout time.Duration

	providers []Provider
	synthetic *Synthetic
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewChain builds a chain of remote followed by synthetic. A nil synthetic
// creates one on the wall clock. Nil remote entries are skipped, so callers
// can pass providers that were not configured.
func NewChain(logger *zap.Logger, m *metrics.Metrics, synthetic *Synthetic, remote ...Provider) *Chain {
	if synthetic == nil {
		synthetic = NewSynthetic()
	}
	providers := make([]Provider, 0, len(remote)+1)
	for _, p := range remote {
		if p != nil {
			providers = append(providers, p)
		}
	}
	providers = append(providers, synthetic)
	return &Chain{
		Timeout:   DefaultTimeout,
		providers: providers,
		synthetic: synthetic,
		logger:    logger.With(zap.String("component", "provider_chain")),
		metrics:   m,
	}
}

// Synthetic returns the terminal provider.
func (c *Chain) Synthetic() *Synthetic { return c.synthetic }

// Names lists the providers in priority order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Price walks the chain until a provider returns a quote.
func (c *Chain) Price(ctx context.Context, symbol string) QuoteResult {
	var errs []error
	for _, p := range c.providers {
		q, err := c.callPrice(ctx, p, symbol)
		status := Classify(err)
		if status == StatusOK {
			return QuoteResult{Quote: q, Provider: p.Name(), Status: StatusOK}
		}
		c.logger.Debug("provider miss, falling through",
			zap.String("provider", p.Name()),
			zap.String("symbol", symbol),
			zap.Stringer("status", status),
			zap.Error(err),
		)
		errs = append(errs, err)
	}
	return QuoteResult{
		Status: StatusNotFound,
		Err:    fmt.Errorf("%w: price %q: %w", ErrNotFound, symbol, errors.Join(errs...)),
	}
}

// History walks the chain until a provider returns a non-empty series.
func (c *Chain) History(ctx context.Context, symbol string, days int) HistoryResult {
	var errs []error
	for _, p := range c.providers {
		s, err := c.callHistory(ctx, p, symbol, days)
		if err == nil && s.Empty() {
			err = fmt.Errorf("%w: %s returned an empty series", ErrNotFound, p.Name())
		}
		status := Classify(err)
		if status == StatusOK {
			return HistoryResult{Series: s, Provider: p.Name(), Status: StatusOK}
		}
		c.logger.Debug("provider history miss, falling through",
			zap.String("provider", p.Name()),
			zap.String("symbol", symbol),
			zap.Stringer("status", status),
			zap.Error(err),
		)
		errs = append(errs, err)
	}
	return HistoryResult{
		Status: StatusNotFound,
		Err:    fmt.Errorf("%w: history %q: %w", ErrNotFound, symbol, errors.Join(errs...)),
	}
}

func (c *Chain) callPrice(ctx context.Context, p Provider, symbol string) (model.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	start := time.Now()
	q, err := p.FetchPrice(ctx, symbol)
	c.metrics.ProviderCall(p.Name(), "price", Classify(err).String(), time.Since(start))
	return q, err
}

func (c *Chain) callHistory(ctx context.Context, p Provider, symbol string, days int) (model.PriceSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	start := time.Now()
	s, err := p.FetchHistory(ctx, symbol, days)
	c.metrics.ProviderCall(p.Name(), "history", Classify(err).String(), time.Since(start))
	return s, err
}

// ChainConfig selects and tunes the remote providers.
type ChainConfig struct {
	PolygonKey       string
	PolygonRate      float64 // requests per minute, 0 for unlimited
	AlphaVantageKey  string
	AlphaVantageRate float64
	YahooEnabled     bool
	Timeout          time.Duration
	Proxy            string
}

// BuildChain assembles Polygon, Alpha Vantage and Yahoo in that order, each
// behind a Guard, followed by Synthetic. Providers without an API key are
// left out.
func BuildChain(cc ChainConfig, logger *zap.Logger, m *metrics.Metrics) *Chain {
	client := NewHTTPClient(cc.Timeout, cc.Proxy)
	guard := func(p Provider, ratePerMinute float64) Provider {
		st := DefaultGuardSettings()
		st.RatePerMinute = ratePerMinute
		st.Burst = 1
		return NewGuard(p, st, logger)
	}

	var remote []Provider
	if cc.PolygonKey != "" {
		remote = append(remote, guard(NewPolygon(cc.PolygonKey, client), cc.PolygonRate))
	}
	if cc.AlphaVantageKey != "" {
		remote = append(remote, guard(NewAlphaVantage(cc.AlphaVantageKey, client), cc.AlphaVantageRate))
	}
	if cc.YahooEnabled {
		remote = append(remote, guard(NewYahoo(client), 0))
	}
	c := NewChain(logger, m, nil, remote...)
	if cc.Timeout > 0 {
		c.Timeout = cc.Timeout
	}
	return c
}
