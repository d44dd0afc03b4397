// Package cache stores search results in Redis keyed by the whitespace
// normalised query and result limit. Concurrent misses for the same key are
// collapsed into a single evaluation. Store calls run behind a circuit
// breaker and a short timeout; an unavailable store degrades to misses.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/resilience"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/redis"
)

const (
	keyPrefix    = "rr:search:"
	storeTimeout = 250 * time.Millisecond
)

// Store is the key-value backend, satisfied by *pkgredis.Client.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		breaker: resilience.NewBreaker("query-cache", resilience.BreakerConfig{FailureThreshold: 5, Cooldown: 10 * time.Second}),
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, query string, limit int) (*searcher.Result, bool) {
	key := BuildKey(query, limit)
	var data []byte
	err := c.call(ctx, "cache get", func(ctx context.Context) error {
		var err error
		data, err = c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			data = nil
			return nil
		}
		return err
	})
	if err != nil || data == nil {
		c.logStoreError("cache get failed", key, err)
		c.miss()
		return nil, false
	}
	var result searcher.Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, query string, limit int, result *searcher.Result) {
	key := BuildKey(query, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.call(ctx, "cache set", func(ctx context.Context) error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	c.logStoreError("cache set failed", key, err)
}

// call runs fn behind the breaker with storeTimeout.
func (c *QueryCache) call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return c.breaker.Do(func() error {
		return resilience.WithTimeout(ctx, storeTimeout, name, fn)
	})
}

func (c *QueryCache) logStoreError(msg, key string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, resilience.ErrOpen):
		c.logger.Debug(msg, "key", key, "error", err)
	default:
		c.logger.Error(msg, "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or evaluates compute once per key
// across concurrent callers and caches what it returns. Errors are never
// cached. The boolean reports a cache hit. compute runs on a context that
// keeps ctx's values but not its cancellation, so one caller going away
// does not fail the others waiting on the same key.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	limit int,
	compute func(ctx context.Context) (*searcher.Result, error),
) (*searcher.Result, bool, error) {
	if result, ok := c.Get(ctx, query, limit); ok {
		return result, true, nil
	}
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(BuildKey(query, limit), func() (any, error) {
		result, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.Set(shared, query, limit, result)
		return result, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*searcher.Result), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Invalidate drops every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey derives the cache key. Queries differing only in surrounding or
// repeated whitespace share a key; the term extractor splits on whitespace
// so they always produce the same result.
func BuildKey(query string, limit int) string {
	raw := fmt.Sprintf("%s\x00limit=%d", strings.Join(strings.Fields(query), " "), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
