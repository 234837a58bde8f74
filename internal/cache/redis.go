package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"PortfolioSentinel/internal/metrics"
	"PortfolioSentinel/internal/model"
)

const redisKeyPrefix = "sentinel:quote:"

// Redis is a Cache shared between service instances. Redis failures degrade
// to cache misses; they never fail a quote request.
type Redis struct {
	TTL   time.Duration
	Clock func() time.Time

	client  *redis.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewRedis connects to addr lazily; the first command dials.
func NewRedis(addr, password string, db int, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		TTL:   ttl,
		Clock: time.Now,
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		logger:  logger.With(zap.String("component", "redis_cache")),
		metrics: m,
	}
}

// Ping checks connectivity.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns the cached quote for symbol if present and fresh.
func (c *Redis) Get(ctx context.Context, symbol string) (model.Quote, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+symbol).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get failed", zap.String("symbol", symbol), zap.Error(err))
		}
		c.metrics.CacheLookup("redis", false)
		return model.Quote{}, false
	}

	var q model.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		c.logger.Warn("redis entry undecodable", zap.String("symbol", symbol), zap.Error(err))
		c.metrics.CacheLookup("redis", false)
		return model.Quote{}, false
	}
	if expired(q, c.TTL, c.Clock()) {
		c.metrics.CacheLookup("redis", false)
		return model.Quote{}, false
	}
	c.metrics.CacheLookup("redis", true)
	return q, true
}

// Put writes quote with a key expiry matching the quote's remaining lifetime.
func (c *Redis) Put(ctx context.Context, quote model.Quote) {
	remaining := quote.ObservedAt.Add(c.TTL).Sub(c.Clock())
	if remaining <= 0 {
		return
	}
	data, err := json.Marshal(quote)
	if err != nil {
		c.logger.Warn("marshal quote", zap.String("symbol", quote.Symbol), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+quote.Symbol, data, remaining).Err(); err != nil {
		c.logger.Warn("redis set failed", zap.String("symbol", quote.Symbol), zap.Error(err))
	}
}

// Close releases the connection pool.
func (c *Redis) Close() error {
	return c.client.Close()
}
