package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"PortfolioSentinel/internal/model"
)

// GuardSettings configures a Guard. A zero RatePerMinute disables rate limiting.
type GuardSettings struct {
	RatePerMinute float64
	Burst         int
	// Breaker trips after MinRequests calls in an Interval with at least
	// FailureRatio unavailable outcomes, then stays open for OpenTimeout.
	MinRequests  uint32
	FailureRatio float64
	Interval     time.Duration
	OpenTimeout  time.Duration
}

// DefaultGuardSettings returns settings suited to a keyed REST provider.
func DefaultGuardSettings() GuardSettings {
	return GuardSettings{
		MinRequests:  5,
		FailureRatio: 0.6,
		Interval:     time.Minute,
		OpenTimeout:  30 * time.Second,
	}
}

// Guard wraps a Provider with a circuit breaker and a rate limiter so that a
// failing or throttled upstream is skipped quickly.
type Guard struct {
	Provider
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewGuard wraps p.
func NewGuard(p Provider, st GuardSettings, logger *zap.Logger) *Guard {
	if st.MinRequests == 0 {
		st.MinRequests = 5
	}
	if st.FailureRatio <= 0 {
		st.FailureRatio = 0.6
	}
	g := &Guard{Provider: p}
	if st.RatePerMinute > 0 {
		burst := st.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(st.RatePerMinute/60), burst)
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     p.Name(),
		Interval: st.Interval,
		Timeout:  st.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= st.MinRequests && ratio >= st.FailureRatio
		},
		// Unknown symbols are an answer, not a failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return g
}

// State reports the breaker state.
func (g *Guard) State() gobreaker.State { return g.breaker.State() }

func (g *Guard) FetchPrice(ctx context.Context, symbol string) (model.Quote, error) {
	if err := g.wait(ctx); err != nil {
		return model.Quote{}, err
	}
	return execute(g.breaker, func() (model.Quote, error) {
		return g.Provider.FetchPrice(ctx, symbol)
	})
}

func (g *Guard) FetchHistory(ctx context.Context, symbol string, days int) (model.PriceSeries, error) {
	if err := g.wait(ctx); err != nil {
		return model.PriceSeries{}, err
	}
	return execute(g.breaker, func() (model.PriceSeries, error) {
		return g.Provider.FetchHistory(ctx, symbol, days)
	})
}

func (g *Guard) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s rate limit: %w", ErrUnavailable, g.Name(), err)
	}
	return nil
}

func execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %s: %w", ErrUnavailable, cb.Name(), err)
		}
		return zero, err
	}
	return res.(T), nil
}
