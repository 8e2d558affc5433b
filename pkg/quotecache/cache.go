// Package quotecache is an optional Redis cache of fetched quote windows.
// The market-data provider allows 250 requests per day on the free tier;
// caching a symbol's window for a short TTL keeps the app usable all day.
package quotecache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"stockchat/pkg/logger"
	"stockchat/pkg/metrics"
	"stockchat/pkg/models"
)

var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	ErrCacheMiss          = errors.New("quote window not cached")
)

const keyPrefix = "quotes:window:"

// Cache wraps a Redis client with per-attempt timeouts, retry/backoff and
// a simple circuit breaker so a sick Redis never blocks a page load.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration

	failureCount int64
	state        int32 // 0: closed, 1: open, 2: half-open
}

// New constructs a Cache from a Redis URL.
func New(redisURL string, ttl time.Duration) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	return &Cache{rdb: redis.NewClient(opt), ttl: ttl}, nil
}

// withMetrics wraps operations with metrics collection
func (c *Cache) withMetrics(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start).Seconds()

	metrics.RedisOperationDuration.WithLabelValues(operation, getStatus(err)).Observe(duration)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		metrics.RedisErrors.WithLabelValues(operation).Inc()
	}
	return err
}

func getStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// checkCircuitBreaker opens the breaker after 5 consecutive failures.
func (c *Cache) checkCircuitBreaker(err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		if atomic.AddInt64(&c.failureCount, 1) >= 5 {
			if atomic.CompareAndSwapInt32(&c.state, 0, 1) {
				logger.Log.Warn("quote cache circuit breaker opened")
			}
		}
		return
	}
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.CompareAndSwapInt32(&c.state, 1, 2) // open -> half-open
}

// Get returns the cached window for symbol, ErrCacheMiss when absent.
func (c *Cache) Get(ctx context.Context, symbol string) (models.QuoteWindow, error) {
	var w models.QuoteWindow
	err := c.withMetrics("get", func() error {
		if atomic.LoadInt32(&c.state) == 1 {
			return ErrCircuitBreakerOpen
		}

		ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		raw, err := c.rdb.Get(ctx, keyPrefix+symbol).Result()
		c.checkCircuitBreaker(err)
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		if err != nil {
			return err
		}

		parsed, err := models.QuoteWindowFromJSON(raw)
		if err != nil {
			// A garbled entry is as good as no entry.
			logger.Log.Warn("dropping corrupt cache entry",
				zap.String("symbol", symbol), zap.Error(err))
			return ErrCacheMiss
		}
		w = parsed
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			metrics.CacheMisses.Inc()
		}
		return models.QuoteWindow{}, err
	}
	metrics.CacheHits.Inc()
	return w, nil
}

// Set stores a window under its symbol with the configured TTL, retrying
// with exponential backoff.
func (c *Cache) Set(ctx context.Context, w models.QuoteWindow) error {
	return c.withMetrics("set", func() error {
		if atomic.LoadInt32(&c.state) == 1 {
			return ErrCircuitBreakerOpen
		}

		raw, err := w.ToJSON()
		if err != nil {
			return err
		}

		op := func() error {
			ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
			defer cancel()
			err := c.rdb.Set(ctx, keyPrefix+w.Symbol, raw, c.ttl).Err()
			c.checkCircuitBreaker(err)
			return err
		}
		return backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3))
	})
}

// Ping checks connectivity, for the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the underlying connection pool.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
