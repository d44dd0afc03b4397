package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/metrics"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  time.Duration
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.ttl = ttl
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func result(q string) *searcher.Result {
	return &searcher.Result{
		Query:   q,
		Terms:   []string{"cat"},
		Skipped: []string{},
		Hits:    []ranker.ScoredDoc{{DocID: 7, Score: 0.5}, {DocID: 3, Score: 0.25}},
	}
}

func TestGetOrCompute(t *testing.T) {
	store := newMemStore()
	m := metrics.New(prometheus.NewRegistry())
	c := New(store, time.Minute, m)
	ctx := context.Background()

	var calls atomic.Int32
	compute := func(context.Context) (*searcher.Result, error) {
		calls.Add(1)
		return result("cats"), nil
	}

	got, hit, err := c.GetOrCompute(ctx, "cats", 10, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, result("cats"), got)

	got, hit, err = c.GetOrCompute(ctx, "  cats ", 10, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, result("cats"), got)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, time.Minute, store.ttl)

	_, hit, err = c.GetOrCompute(ctx, "cats", 5, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(2), calls.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), "q", 10, func(context.Context) (*searcher.Result, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get(context.Background(), "q", 10)
	assert.False(t, ok)
}

func TestGetOrComputeSurvivesCancelledCaller(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var computeErr atomic.Value
	compute := func(ctx context.Context) (*searcher.Result, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			computeErr.Store(err)
			return nil, err
		}
		return result("cats"), nil
	}

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(first, "cats", 10, compute)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		res *searcher.Result
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, _, err := c.GetOrCompute(context.Background(), "cats", 10, compute)
		second <- outcome{res, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, result("cats"), got.res)
	assert.Nil(t, computeErr.Load())

	_, ok := c.Get(context.Background(), "cats", 10)
	assert.True(t, ok)
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	store := newMemStore()
	store.data[BuildKey("q", 10)] = []byte("{not json")
	c := New(store, time.Minute, nil)
	_, ok := c.Get(context.Background(), "q", 10)
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	store.data["other:key"] = []byte("x")
	c := New(store, time.Minute, nil)
	c.Set(context.Background(), "a", 10, result("a"))
	c.Set(context.Background(), "b", 10, result("b"))

	n, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, store.data, 1)
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, BuildKey("cat  dog", 10), BuildKey(" cat dog\t", 10))
	assert.NotEqual(t, BuildKey("cat dog", 10), BuildKey("dog cat", 10))
	assert.NotEqual(t, BuildKey("cat", 10), BuildKey("cat", 11))
	assert.NotEqual(t, BuildKey("Cat", 10), BuildKey("cat", 10))
}

type downStore struct{ calls atomic.Int32 }

func (s *downStore) Get(context.Context, string) ([]byte, error) {
	s.calls.Add(1)
	return nil, errors.New("connection refused")
}

func (s *downStore) Set(context.Context, string, []byte, time.Duration) error {
	s.calls.Add(1)
	return errors.New("connection refused")
}

func (s *downStore) FlushByPattern(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestUnavailableStoreDegradesToMisses(t *testing.T) {
	store := &downStore{}
	c := New(store, time.Minute, nil)

	var computed int
	for range 10 {
		res, hit, err := c.GetOrCompute(context.Background(), "cats", 10, func(context.Context) (*searcher.Result, error) {
			computed++
			return result("cats"), nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, result("cats"), res)
	}
	assert.Equal(t, 10, computed)
	assert.Equal(t, int32(5), store.calls.Load(), "breaker stops calling the store")

	_, err := c.Invalidate(context.Background())
	assert.Error(t, err)
}
