// Package cache stores the latest quote per symbol for a bounded time.
package cache

import (
	"context"
	"time"

	"PortfolioSentinel/internal/model"
)

// DefaultTTL is how long a quote stays servable after it was observed.
const DefaultTTL = 60 * time.Second

// Cache maps symbol -> latest quote. Get must never return a quote whose
// age is >= the TTL.
type Cache interface {
	Get(ctx context.Context, symbol string) (model.Quote, bool)
	Put(ctx context.Context, quote model.Quote)
}

func expired(q model.Quote, ttl time.Duration, now time.Time) bool {
	return !now.Before(q.ObservedAt.Add(ttl))
}
