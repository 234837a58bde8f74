package cache

import (
	"context"
	"sync"
	"time"

	"PortfolioSentinel/internal/metrics"
	"PortfolioSentinel/internal/model"
)

// slot holds one symbol's entry. Its mutex only covers that entry, so
// unrelated symbols never contend.
type slot struct {
	mu    sync.Mutex
	quote model.Quote
	set   bool
}

// Memory is an in-process Cache. Entries are never evicted; a stale entry is
// simply ignored until the next successful fetch replaces it.
type Memory struct {
	TTL   time.Duration
	Clock func() time.Time

	mu      sync.RWMutex // guards the slots map, not the entries
	slots   map[string]*slot
	metrics *metrics.Metrics
}

// NewMemory creates an empty in-memory cache. A non-positive ttl selects DefaultTTL.
func NewMemory(ttl time.Duration, m *metrics.Metrics) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		TTL:     ttl,
		Clock:   time.Now,
		slots:   make(map[string]*slot),
		metrics: m,
	}
}

// Get returns the cached quote for symbol if it is still fresh.
func (c *Memory) Get(_ context.Context, symbol string) (model.Quote, bool) {
	c.mu.RLock()
	s := c.slots[symbol]
	c.mu.RUnlock()
	if s == nil {
		c.metrics.CacheLookup("memory", false)
		return model.Quote{}, false
	}

	s.mu.Lock()
	q, ok := s.quote, s.set
	s.mu.Unlock()

	if !ok || expired(q, c.TTL, c.Clock()) {
		c.metrics.CacheLookup("memory", false)
		return model.Quote{}, false
	}
	c.metrics.CacheLookup("memory", true)
	return q, true
}

// Put stores quote under its symbol. An entry observed later than quote is
// kept, so a slow writer can never roll the slot back.
func (c *Memory) Put(_ context.Context, quote model.Quote) {
	s := c.slotFor(quote.Symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set && s.quote.ObservedAt.After(quote.ObservedAt) {
		return
	}
	s.quote = quote
	s.set = true
}

// Len returns the number of symbols ever stored, fresh or stale.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.slots)
}

func (c *Memory) slotFor(symbol string) *slot {
	c.mu.RLock()
	s := c.slots[symbol]
	c.mu.RUnlock()
	if s != nil {
		return s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s = c.slots[symbol]; s == nil {
		s = &slot{}
		c.slots[symbol] = s
	}
	return s
}
