// Command loadtest replays a query file against a running search service and
// reports throughput, latency percentiles and the zero-result rate.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"maps"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher"
	rrerrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/middleware"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Queries     []string
}

type Stats struct {
	total      atomic.Int64
	success    atomic.Int64
	failed     atomic.Int64
	zeroResult atomic.Int64
	skipped    atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies: make([]time.Duration, 0, 100000),
		statuses:  make(map[int]int64),
	}
}

// Record accounts one request. res is nil unless the body decoded.
func (s *Stats) Record(d time.Duration, status int, res *searcher.Result, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if status == http.StatusOK && res != nil {
		s.success.Add(1)
		if len(res.Hits) == 0 {
			s.zeroResult.Add(1)
		}
		s.skipped.Add(int64(len(res.Skipped)))
	} else {
		s.failed.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.statuses[status]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "results requested per query")
	queryFile := flag.String("q", "", "file of queries, one per line")
	flag.Parse()

	if *queryFile == "" {
		fmt.Fprintln(os.Stderr, "usage: loadtest -q file-of-queries [-url base] [-concurrency n] [-duration d] [-limit k]")
		os.Exit(rrerrors.ExitUsage)
	}
	queries, err := loadQueries(*queryFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading queries: %v\n", err)
		os.Exit(rrerrors.ExitRuntime)
	}

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		Limit:       *limit,
		Queries:     queries,
	}

	fmt.Println("=== Retrieval Engine Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d\n", len(cfg.Queries))
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()
	stats := Run(ctx, cfg, newClient(cfg.Concurrency))
	if !printReport(os.Stdout, stats, cfg.Duration) {
		os.Exit(rrerrors.ExitRuntime)
	}
}

// loadQueries reads the query file and drops empty lines, which the service
// rejects with 400.
func loadQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	all, err := searcher.ReadQueries(f)
	if err != nil {
		return nil, err
	}
	queries := slices.DeleteFunc(all, func(q string) bool { return q == "" })
	if len(queries) == 0 {
		return nil, fmt.Errorf("%s contains no queries", path)
	}
	return queries, nil
}

func newClient(concurrency int) *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Run issues queries round-robin from cfg.Concurrency workers until ctx ends.
func Run(ctx context.Context, cfg Config, client *http.Client) *Stats {
	stats := NewStats()
	var wg sync.WaitGroup
	for w := range cfg.Concurrency {
		wg.Go(func() {
			for i := w; ctx.Err() == nil; i++ {
				q := cfg.Queries[i%len(cfg.Queries)]
				start := time.Now()
				status, res, err := query(ctx, client, cfg, q, fmt.Sprintf("loadtest-%d-%d", w, i))
				if ctx.Err() != nil {
					return
				}
				stats.Record(time.Since(start), status, res, err)
			}
		})
	}
	wg.Wait()
	return stats
}

func query(ctx context.Context, client *http.Client, cfg Config, q, requestID string) (int, *searcher.Result, error) {
	target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d", cfg.BaseURL, url.QueryEscape(q), cfg.Limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set(middleware.RequestIDHeader, requestID)
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil, nil
	}
	var res searcher.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return resp.StatusCode, nil, nil
	}
	return resp.StatusCode, &res, nil
}

// printReport writes the summary and reports whether any request completed.
func printReport(w io.Writer, stats *Stats, duration time.Duration) bool {
	total := stats.total.Load()
	success := stats.success.Load()
	failed := stats.failed.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", success)
	fmt.Fprintf(w, "Errors:          %d\n", failed)
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}
	if success > 0 {
		fmt.Fprintf(w, "Zero Results:    %.2f%%\n", float64(stats.zeroResult.Load())/float64(success)*100)
		fmt.Fprintf(w, "Skipped Terms:   %d\n", stats.skipped.Load())
	}

	stats.mu.Lock()
	latencies := slices.Clone(stats.latencies)
	statuses := maps.Clone(stats.statuses)
	stats.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", avg)
		fmt.Fprintf(w, "P50:    %s\n", percentile(latencies, 50))
		fmt.Fprintf(w, "P90:    %s\n", percentile(latencies, 90))
		fmt.Fprintf(w, "P99:    %s\n", percentile(latencies, 99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	for _, code := range slices.Sorted(maps.Keys(statuses)) {
		fmt.Fprintf(w, "  %d: %d\n", code, statuses[code])
	}

	if total == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WARNING: No requests completed. Is the service running?")
		return false
	}
	return true
}

// percentile is nearest-rank over an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
