package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PortfolioSentinel/internal/metrics"
	"PortfolioSentinel/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMemory(t *testing.T) (*Memory, *fakeClock, *metrics.Metrics) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)}
	m := metrics.New(prometheus.NewRegistry())
	c := NewMemory(time.Minute, m)
	c.Clock = clock.Now
	return c, clock, m
}

func TestMemory_MissOnEmpty(t *testing.T) {
	c, _, m := newTestMemory(t)
	_, ok := c.Get(context.Background(), "AAPL")
	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests().WithLabelValues("memory", "miss")))
}

func TestMemory_HitWithinTTL(t *testing.T) {
	c, clock, m := newTestMemory(t)
	ctx := context.Background()
	c.Put(ctx, model.Quote{Symbol: "AAPL", Price: 175.5, ObservedAt: clock.Now()})

	clock.Advance(59 * time.Second)
	q, ok := c.Get(ctx, "AAPL")
	require.True(t, ok)
	assert.Equal(t, 175.5, q.Price)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests().WithLabelValues("memory", "hit")))
}

func TestMemory_ExpiredAtExactlyTTL(t *testing.T) {
	c, clock, _ := newTestMemory(t)
	ctx := context.Background()
	c.Put(ctx, model.Quote{Symbol: "AAPL", Price: 175.5, ObservedAt: clock.Now()})

	clock.Advance(time.Minute)
	_, ok := c.Get(ctx, "AAPL")
	assert.False(t, ok, "an entry aged exactly TTL must not be served")
}

func TestMemory_RefreshReplacesStaleEntry(t *testing.T) {
	c, clock, _ := newTestMemory(t)
	ctx := context.Background()
	c.Put(ctx, model.Quote{Symbol: "MSFT", Price: 380, ObservedAt: clock.Now()})
	clock.Advance(2 * time.Minute)
	c.Put(ctx, model.Quote{Symbol: "MSFT", Price: 381, ObservedAt: clock.Now()})

	q, ok := c.Get(ctx, "MSFT")
	require.True(t, ok)
	assert.Equal(t, 381.0, q.Price)
	assert.Equal(t, 1, c.Len())
}

func TestMemory_OlderWriteDoesNotOverwrite(t *testing.T) {
	c, clock, _ := newTestMemory(t)
	ctx := context.Background()
	now := clock.Now()
	c.Put(ctx, model.Quote{Symbol: "TSLA", Price: 251, ObservedAt: now})
	c.Put(ctx, model.Quote{Symbol: "TSLA", Price: 249, ObservedAt: now.Add(-time.Second)})

	q, ok := c.Get(ctx, "TSLA")
	require.True(t, ok)
	assert.Equal(t, 251.0, q.Price)
}

func TestMemory_ConcurrentSymbols(t *testing.T) {
	c, clock, _ := newTestMemory(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sym := fmt.Sprintf("SYM%d", i%16)
			c.Put(ctx, model.Quote{Symbol: sym, Price: float64(i), ObservedAt: clock.Now()})
			c.Get(ctx, sym)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 16, c.Len())
}

func TestNewMemory_DefaultTTL(t *testing.T) {
	c := NewMemory(0, nil)
	assert.Equal(t, DefaultTTL, c.TTL)
}
