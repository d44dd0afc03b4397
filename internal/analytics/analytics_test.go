package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/kafka"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, events ...kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func TestClassify(t *testing.T) {
	e := QueryEvent{Returned: 3}
	e.Classify(nil)
	assert.Equal(t, EventQuery, e.Type)

	e = QueryEvent{}
	e.Classify(nil)
	assert.Equal(t, EventZeroResult, e.Type)

	e.Classify(errors.New("boom"))
	assert.Equal(t, EventQueryError, e.Type)
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(QueryEvent{Type: EventQuery, Query: "cat", Returned: 2, LatencyMs: 10})
	agg.Record(QueryEvent{Type: EventQuery, Query: "cat", Returned: 2, LatencyMs: 20, CacheHit: true})
	agg.Record(QueryEvent{Type: EventZeroResult, Query: "zzz", LatencyMs: 30, SkippedTerms: []string{"zzz"}})
	agg.Record(QueryEvent{Type: EventQueryError, Query: "bad", LatencyMs: 40})

	stats := agg.Stats()
	assert.Equal(t, int64(4), stats.TotalQueries)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(3), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, int64(1), stats.ErrorCount)
	assert.Equal(t, int64(1), stats.SkippedTermCount)
	assert.Equal(t, 25.0, stats.AvgLatencyMs)
	assert.Equal(t, int64(30), stats.P50LatencyMs)
	assert.Equal(t, int64(40), stats.P99LatencyMs)
	require.NotEmpty(t, stats.TopQueries)
	assert.Equal(t, QueryCount{Query: "cat", Count: 2}, stats.TopQueries[0])
	assert.Equal(t, []QueryCount{{Query: "zzz", Count: 1}}, stats.ZeroResultQueries)
}

func TestCollectorPublishesAndAggregates(t *testing.T) {
	pub := &fakePublisher{}
	agg := NewAggregator()
	c := NewCollector(pub, agg, 16)
	c.Start(context.Background())

	c.Track(QueryEvent{Type: EventQuery, Query: "cat", Returned: 1})
	c.Track(QueryEvent{Type: EventZeroResult, Query: "dog"})
	c.Close()

	require.Len(t, pub.events, 2)
	assert.Equal(t, "cat", pub.events[0].Key)
	assert.Equal(t, int64(2), agg.Stats().TotalQueries)
}

func TestCollectorTrackAfterClose(t *testing.T) {
	agg := NewAggregator()
	c := NewCollector(nil, agg, 4)
	c.Start(context.Background())
	c.Track(QueryEvent{Type: EventQuery, Query: "cat", Returned: 1})
	c.Close()

	assert.NotPanics(t, func() {
		c.Track(QueryEvent{Type: EventQuery, Query: "late"})
		c.Close()
	})
	assert.Equal(t, int64(1), agg.Stats().TotalQueries)
}

func TestCollectorConcurrentTrackAndClose(t *testing.T) {
	c := NewCollector(nil, NewAggregator(), 8)
	c.Start(context.Background())

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 100 {
				c.Track(QueryEvent{Type: EventQuery, Query: "cat"})
			}
		})
	}
	c.Close()
	wg.Wait()
}

func TestCollectorWithoutPublisher(t *testing.T) {
	agg := NewAggregator()
	c := NewCollector(nil, agg, 1)
	c.Start(context.Background())
	c.Track(QueryEvent{Query: "x"})
	c.Close()
	c.Close()
	assert.LessOrEqual(t, agg.Stats().TotalQueries, int64(1))
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(QueryEvent{Type: EventQuery, Query: "cat", Returned: 1, LatencyMs: 5})
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalQueries)

	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodPost, "/api/v1/stats", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
