// Package gateway is the single entry point for market data: it consults the
// quote cache, walks the provider chain on a miss and guarantees a price for
// every symbol in a batch.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"PortfolioSentinel/internal/cache"
	"PortfolioSentinel/internal/metrics"
	"PortfolioSentinel/internal/model"
	"PortfolioSentinel/internal/provider"
)

const (
	// MaxBatch is the largest batch accepted by GetPrices callers and the
	// fan-out bound inside it.
	MaxBatch = 50
	// MinDays and MaxDays bound history requests.
	MinDays = 1
	MaxDays = 2000
)

var (
	// ErrSymbolNotFound means no provider, synthetic included, produced data.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrInvalidRequest flags out-of-range request parameters.
	ErrInvalidRequest = errors.New("invalid request")
)

// ValidateDays checks a history length request.
func ValidateDays(days int) error {
	if days < MinDays || days > MaxDays {
		return fmt.Errorf("%w: days must be in [%d, %d], got %d", ErrInvalidRequest, MinDays, MaxDays, days)
	}
	return nil
}

// ValidateBatch checks the size of a batch quote request.
func ValidateBatch(n int) error {
	if n < 1 || n > MaxBatch {
		return fmt.Errorf("%w: batch size must be in [1, %d], got %d", ErrInvalidRequest, MaxBatch, n)
	}
	return nil
}

// Gateway serves prices and history.
type Gateway struct {
	cache   cache.Cache
	chain   *provider.Chain
	flight  singleflight.Group
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Gateway over the given cache and chain.
func New(c cache.Cache, chain *provider.Chain, logger *zap.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{
		cache:   c,
		chain:   chain,
		logger:  logger.With(zap.String("component", "gateway")),
		metrics: m,
	}
}

// GetPrice returns the current price for symbol.
func (g *Gateway) GetPrice(ctx context.Context, symbol string) (float64, error) {
	q, err := g.GetQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

// GetQuote returns the cached quote for symbol or fetches a fresh one.
// Concurrent misses for one symbol share a single chain walk. The walk is
// detached from ctx so an abandoned caller cannot push a synthetic quote
// into the cache; the caller itself stops waiting when ctx ends.
func (g *Gateway) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	if q, ok := g.cache.Get(ctx, symbol); ok {
		return q, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := g.flight.DoChan(symbol, func() (v any, err error) {
		// DoChan re-raises a panic on its own goroutine; keep it an error.
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %q: panic: %v", ErrSymbolNotFound, symbol, r)
			}
		}()
		if q, ok := g.cache.Get(flightCtx, symbol); ok {
			return q, nil
		}
		res := g.chain.Price(flightCtx, symbol)
		if !res.OK() {
			g.logger.Error("provider chain exhausted",
				zap.String("symbol", symbol),
				zap.Error(res.Err),
			)
			return model.Quote{}, fmt.Errorf("%w: %q: %w", ErrSymbolNotFound, symbol, res.Err)
		}
		g.cache.Put(flightCtx, res.Quote)
		return res.Quote, nil
	})

	select {
	case <-ctx.Done():
		return model.Quote{}, fmt.Errorf("quote %q: %w", symbol, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return model.Quote{}, r.Err
		}
		return r.Val.(model.Quote), nil
	}
}

// GetPrices returns exactly one price per distinct symbol. Any symbol whose
// lookup fails or panics, or that is not started before ctx ends, gets the
// synthetic price instead.
func (g *Gateway) GetPrices(ctx context.Context, symbols []string) map[string]float64 {
	quotes := g.GetQuotes(ctx, symbols)
	prices := make(map[string]float64, len(quotes))
	for s, q := range quotes {
		prices[s] = q.Price
	}
	return prices
}

// GetQuotes is GetPrices returning whole quotes.
func (g *Gateway) GetQuotes(ctx context.Context, symbols []string) map[string]model.Quote {
	distinct := dedupe(symbols)
	out := make(map[string]model.Quote, len(distinct))
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(MaxBatch)
	)
	set := func(q model.Quote) {
		mu.Lock()
		out[q.Symbol] = q
		mu.Unlock()
	}

	for _, symbol := range distinct {
		if err := sem.Acquire(ctx, 1); err != nil {
			set(g.fallback(symbol, err))
			continue
		}
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			defer sem.Release(1)
			set(g.isolated(ctx, symbol))
		}(symbol)
	}
	wg.Wait()
	return out
}

func (g *Gateway) isolated(ctx context.Context, symbol string) (q model.Quote) {
	defer func() {
		if r := recover(); r != nil {
			q = g.fallback(symbol, fmt.Errorf("panic: %v", r))
		}
	}()
	q, err := g.GetQuote(ctx, symbol)
	if err != nil {
		return g.fallback(symbol, err)
	}
	return q
}

func (g *Gateway) fallback(symbol string, cause error) model.Quote {
	g.metrics.SyntheticFallback("price")
	g.logger.Warn("batch entry replaced with synthetic price",
		zap.String("symbol", symbol),
		zap.Error(cause),
	)
	synthetic := g.chain.Synthetic()
	now := synthetic.Clock()
	return model.Quote{
		Symbol:     symbol,
		Price:      synthetic.PriceAt(symbol, now),
		ObservedAt: now,
		Source:     synthetic.Name(),
	}
}

// GetHistory returns up to days daily closes for symbol. History is not
// cached.
func (g *Gateway) GetHistory(ctx context.Context, symbol string, days int) (model.PriceSeries, error) {
	if err := ValidateDays(days); err != nil {
		return model.PriceSeries{}, err
	}
	res := g.chain.History(ctx, symbol, days)
	if !res.OK() || res.Series.Empty() {
		g.logger.Warn("no history available",
			zap.String("symbol", symbol),
			zap.Int("days", days),
			zap.Error(res.Err),
		)
		return model.PriceSeries{}, fmt.Errorf("%w: history %q", ErrSymbolNotFound, symbol)
	}
	return res.Series, nil
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
