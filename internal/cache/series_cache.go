// Package cache provides the Redis-backed price-series cache the tracker
// reads through before hitting the market-data provider.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/models"
)

// SeriesCacheEntry wraps a cached series with its freshness metadata.
type SeriesCacheEntry struct {
	Series   models.PriceSeries `json:"series"`
	CachedAt time.Time          `json:"cached_at"`
}

// SeriesCacheStats tracks cache performance counters.
type SeriesCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// RedisSeriesCache caches per-symbol daily close history in Redis. Cache
// failures are treated as misses; the provider remains the source of truth.
type RedisSeriesCache struct {
	redis  *redis.Client
	ttl    time.Duration
	stats  *SeriesCacheStats
	prefix string
}

// NewRedisSeriesCache creates a new Redis-backed series cache.
func NewRedisSeriesCache(redisClient *redis.Client, ttl time.Duration) *RedisSeriesCache {
	return &RedisSeriesCache{
		redis:  redisClient,
		ttl:    ttl,
		stats:  &SeriesCacheStats{},
		prefix: "series_cache:",
	}
}

// key includes the window so a cached series is only reused for the exact
// span the tracker asked for.
func (c *RedisSeriesCache) key(symbol string, start, end time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", c.prefix, symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Get retrieves a cached series for one symbol and window.
func (c *RedisSeriesCache) Get(ctx context.Context, symbol string, start, end time.Time) (models.PriceSeries, bool) {
	data, err := c.redis.Get(ctx, c.key(symbol, start, end)).Result()
	if err == redis.Nil {
		c.miss()
		return models.PriceSeries{}, false
	}
	if err != nil {
		logrus.WithError(err).WithField("symbol", symbol).Warn("Series cache read failed")
		c.miss()
		return models.PriceSeries{}, false
	}

	var entry SeriesCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		logrus.WithError(err).WithField("symbol", symbol).Warn("Series cache entry corrupt")
		c.miss()
		return models.PriceSeries{}, false
	}

	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
	return entry.Series, true
}

// Set stores a fetched series. Errors are logged and swallowed; caching is
// best effort.
func (c *RedisSeriesCache) Set(ctx context.Context, symbol string, start, end time.Time, series models.PriceSeries) {
	entry := SeriesCacheEntry{Series: series, CachedAt: time.Now()}
	data, err := json.Marshal(entry)
	if err != nil {
		logrus.WithError(err).WithField("symbol", symbol).Warn("Series cache marshal failed")
		return
	}
	if err := c.redis.Set(ctx, c.key(symbol, start, end), data, c.ttl).Err(); err != nil {
		logrus.WithError(err).WithField("symbol", symbol).Warn("Series cache write failed")
		return
	}
	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
}

// Stats returns a snapshot of the hit/miss counters.
func (c *RedisSeriesCache) Stats() SeriesCacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return SeriesCacheStats{Hits: c.stats.Hits, Misses: c.stats.Misses, Sets: c.stats.Sets}
}

func (c *RedisSeriesCache) miss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}
