package searcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/ranker"
)

// Searcher answers a single query.
type Searcher interface {
	Search(ctx context.Context, query string) (*Result, error)
}

const maxQueryLine = 1 << 20

// ReadQueries returns one query per input line. A final line without a
// newline is still a query; a trailing newline does not add an empty one.
func ReadQueries(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxQueryLine)
	var queries []string
	for sc.Scan() {
		queries = append(queries, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	return queries, nil
}

// FormatHits renders docIDs separated by single spaces.
func FormatHits(hits []ranker.ScoredDoc) string {
	var b strings.Builder
	for i, h := range hits {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatUint(uint64(h.DocID), 10))
	}
	return b.String()
}

// RunBatch evaluates every query read from r on up to workers goroutines
// and writes one line per query to w in input order. Lines are separated by
// '\n' with no newline after the last one; a query without hits yields an
// empty line. The first failing query cancels the rest and nothing is
// written.
func RunBatch(ctx context.Context, s Searcher, r io.Reader, w io.Writer, workers int) error {
	queries, err := ReadQueries(r)
	if err != nil {
		return err
	}
	if workers < 1 {
		workers = 1
	}

	lines := make([]string, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, q := range queries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := s.Search(gctx, q)
			if err != nil {
				return fmt.Errorf("query %d %q: %w", i+1, q, err)
			}
			lines[i] = FormatHits(res.Hits)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	for i, line := range lines {
		if i > 0 {
			bw.WriteByte('\n')
		}
		bw.WriteString(line)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}
