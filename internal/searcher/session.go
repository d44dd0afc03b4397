// Package searcher loads an index once and answers ranked queries against
// it, either one at a time or as an ordered batch.
package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/lengths"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/config"
	rrerrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/tracing"
)

// Result is the answer to one query.
type Result struct {
	Query   string             `json:"query"`
	Terms   []string           `json:"terms"`
	Skipped []string           `json:"skipped_terms"`
	Hits    []ranker.ScoredDoc `json:"results"`
}

// Index bundles the loaded, read-only index structures.
type Index struct {
	Dictionary *index.Dictionary
	Postings   *index.PostingsStore
	Lengths    *lengths.Table
}

// Close releases the postings file.
func (ix *Index) Close() error {
	if ix.Postings == nil {
		return nil
	}
	return ix.Postings.Close()
}

// Session answers queries against one Index. It is safe for concurrent use:
// every query owns its accumulator and postings are read with ReadAt.
type Session struct {
	ix        *Index
	postings  ranker.PostingsReader
	extractor *tokenizer.Extractor
	limit     int
	tracing   bool
	metrics   *metrics.Metrics
	logger    *slog.Logger
	seq       atomic.Uint64
}

type Option func(*Session)

// WithMetrics records query, term error and postings read metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithTracing logs a span tree per query at debug level.
func WithTracing(enabled bool) Option {
	return func(s *Session) { s.tracing = enabled }
}

// WithLimit sets the number of results Search returns.
func WithLimit(limit int) Option {
	return func(s *Session) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

func New(ix *Index, extractor *tokenizer.Extractor, opts ...Option) *Session {
	s := &Session{
		ix:        ix,
		extractor: extractor,
		limit:     ranker.TopLimit,
		logger:    slog.Default().With("component", "searcher"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.postings = ix.Postings
	if s.metrics != nil {
		s.postings = countingReader{r: ix.Postings, m: s.metrics}
		s.metrics.IndexTermsLoaded.Set(float64(len(ix.Dictionary.Terms)))
		s.metrics.IndexDocumentsLoaded.Set(float64(ix.Dictionary.N()))
	}
	return s
}

// Open loads the index named by cfg and builds a Session over it. Any load
// failure is returned before a query can run.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	ix, err := LoadIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}
	extractor, err := tokenizer.New(tokenizer.Options{
		IgnoreStopwords: cfg.Query.IgnoreStopwords,
		IgnoreSingles:   cfg.Query.IgnoreSingles,
		CaseFold:        cfg.Query.CaseFold,
		Stemmer:         cfg.Query.Stemmer,
	})
	if err != nil {
		ix.Close()
		return nil, fmt.Errorf("building query term extractor: %w", err)
	}
	opts = append([]Option{WithLimit(cfg.Search.TopLimit), WithTracing(cfg.Tracing.Enabled)}, opts...)
	return New(ix, extractor, opts...), nil
}

// LoadIndex reads the dictionary and vector lengths and opens the postings
// file.
func LoadIndex(ctx context.Context, cfg *config.Config) (*Index, error) {
	log := slog.Default().With("component", "index-loader")
	start := time.Now()

	dict, err := index.LoadDictionary(cfg.Index.DictionaryPath)
	if err != nil {
		return nil, fmt.Errorf("loading dictionary: %w", err)
	}
	order, err := index.ParseByteOrder(cfg.Index.ByteOrder)
	if err != nil {
		return nil, err
	}
	table, err := loadLengths(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("loading vector lengths: %w", err)
	}
	store, err := index.OpenPostings(cfg.Index.PostingsPath, order)
	if err != nil {
		return nil, fmt.Errorf("opening postings: %w", err)
	}
	log.Info("index loaded",
		"terms", len(dict.Terms),
		"documents", dict.N(),
		"vector_lengths", table.Len(),
		"postings_bytes", store.Size(),
		"byte_order", cfg.Index.ByteOrder,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Index{Dictionary: dict, Postings: store, Lengths: table}, nil
}

func loadLengths(ctx context.Context, cfg *config.Config) (*lengths.Table, error) {
	if cfg.Lengths.Source != "postgres" {
		return lengths.LoadFile(cfg.Index.LengthsPath)
	}
	var client *postgres.Client
	err := resilience.Retry(ctx, "postgres connect", resilience.RetryConfig{MaxAttempts: 3}, func(ctx context.Context) error {
		var err error
		client, err = postgres.New(ctx, cfg.Postgres)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return lengths.LoadPostgres(ctx, client, cfg.Lengths.Table)
}

func (s *Session) Close() error {
	return s.ix.Close()
}

// Index returns the loaded index structures.
func (s *Session) Index() *Index {
	return s.ix
}

func (s *Session) Search(ctx context.Context, query string) (*Result, error) {
	return s.SearchN(ctx, query, s.limit)
}

// SearchN evaluates query and returns at most limit hits. Terms whose
// postings cannot be read are skipped and reported in Result.Skipped. A
// scored document without a vector length fails the whole query.
func (s *Session) SearchN(ctx context.Context, query string, limit int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	log := s.logger
	if id := logger.RequestID(ctx); id != "" {
		log = log.With("request_id", id)
	}

	var root *tracing.Span
	if s.tracing {
		traceID := logger.RequestID(ctx)
		if traceID == "" {
			traceID = "q" + strconv.FormatUint(s.seq.Add(1), 10)
		}
		ctx, root = tracing.StartSpan(ctx, "query", traceID)
		defer func() {
			root.End()
			root.Log(log)
		}()
	}

	_, span := tracing.StartChildSpan(ctx, "extract")
	terms := s.extractor.Extract(query)
	span.SetAttr("terms", len(terms))
	span.End()

	_, span = tracing.StartChildSpan(ctx, "score")
	acc, skipped, err := ranker.Score(s.ix.Dictionary, s.postings, terms)
	span.SetAttr("documents", accLen(acc))
	span.End()
	if err != nil {
		s.observe(start, metrics.ResultError, 0)
		return nil, err
	}
	res := &Result{
		Query:   query,
		Terms:   terms.Terms(),
		Skipped: make([]string, 0, len(skipped)),
	}
	for _, sk := range skipped {
		log.Warn("skipping query term with unreadable postings", "term", sk.Term, "error", sk.Err)
		res.Skipped = append(res.Skipped, sk.Term)
		if s.metrics != nil {
			s.metrics.SearchTermErrors.WithLabelValues(termErrorKind(sk.Err)).Inc()
		}
	}

	_, span = tracing.StartChildSpan(ctx, "normalize")
	docs, err := ranker.Normalize(acc, s.ix.Lengths)
	span.End()
	if err != nil {
		s.observe(start, metrics.ResultError, 0)
		return nil, err
	}

	_, span = tracing.StartChildSpan(ctx, "top_k")
	res.Hits = ranker.TopK(docs, limit)
	span.SetAttr("hits", len(res.Hits))
	span.End()
	if res.Hits == nil {
		res.Hits = []ranker.ScoredDoc{}
	}

	resultType := metrics.ResultHit
	if len(res.Hits) == 0 {
		resultType = metrics.ResultZero
	}
	s.observe(start, resultType, len(res.Hits))
	return res, nil
}

func (s *Session) observe(start time.Time, resultType string, hits int) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	s.metrics.SearchLatency.Observe(time.Since(start).Seconds())
	if resultType != metrics.ResultError {
		s.metrics.SearchResultsCount.Observe(float64(hits))
	}
}

func accLen(acc *ranker.Accumulator) int {
	if acc == nil {
		return 0
	}
	return acc.Len()
}

func termErrorKind(err error) string {
	switch {
	case errors.Is(err, rrerrors.ErrTruncatedPostings):
		return "truncated"
	case errors.Is(err, rrerrors.ErrInvalidOffset):
		return "invalid_offset"
	default:
		return "other"
	}
}

// countingReader counts the bytes of every postings list it decodes.
type countingReader struct {
	r ranker.PostingsReader
	m *metrics.Metrics
}

func (c countingReader) ReadPostings(offset uint64, count uint32) (index.PostingList, error) {
	list, err := c.r.ReadPostings(offset, count)
	if err == nil {
		c.m.PostingsReadBytes.Add(float64(len(list) * index.PostingSize))
	}
	return list, err
}
