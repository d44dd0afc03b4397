// Command search answers a file of queries against a prebuilt index and
// writes one line of ranked document IDs per query.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/config"
	rrerrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/metrics"
)

const usage = "usage: search -d dictionary-file -p postings-file -q file-of-queries -o output-file-of-results [-l vector-lengths-file] [-config file] [-workers n] [-k limit]"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	dictionary string
	postings   string
	queries    string
	output     string
	lengths    string
	configPath string
	workers    int
	limit      int
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprintln(stderr, usage) }

	var o options
	fs.StringVar(&o.dictionary, "d", "", "dictionary file")
	fs.StringVar(&o.postings, "p", "", "postings file")
	fs.StringVar(&o.queries, "q", "", "file of queries, one per line")
	fs.StringVar(&o.output, "o", "", "output file of results")
	fs.StringVar(&o.lengths, "l", "", "vector lengths file (overrides config)")
	fs.StringVar(&o.configPath, "config", "", "path to config file")
	fs.IntVar(&o.workers, "workers", 0, "queries evaluated concurrently (overrides config)")
	fs.IntVar(&o.limit, "k", 0, "results per query (overrides config)")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", rrerrors.ErrInvalidInput, err)
	}
	if o.dictionary == "" || o.postings == "" || o.queries == "" || o.output == "" {
		fs.Usage()
		return nil, fmt.Errorf("%w: missing required flag", rrerrors.ErrInvalidInput)
	}
	return &o, nil
}

func (o *options) apply(cfg *config.Config) error {
	cfg.Index.DictionaryPath = o.dictionary
	cfg.Index.PostingsPath = o.postings
	if o.lengths != "" {
		cfg.Index.LengthsPath = o.lengths
	}
	if o.workers != 0 {
		cfg.Search.Workers = o.workers
	}
	if o.limit != 0 {
		cfg.Search.TopLimit = o.limit
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", rrerrors.ErrInvalidInput, err)
	}
	return nil
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return rrerrors.ExitUsage
		}
		return rrerrors.ExitCode(err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return rrerrors.ExitUsage
	}
	if err := opts.apply(cfg); err != nil {
		fmt.Fprintln(stderr, err)
		return rrerrors.ExitCode(err)
	}
	logger.Setup(stderr, cfg.Logging.Level, cfg.Logging.Format)

	if err := search(ctx, cfg, opts); err != nil {
		slog.Error("search failed", "error", err)
		return rrerrors.ExitCode(err)
	}
	return rrerrors.ExitOK
}

func search(ctx context.Context, cfg *config.Config, opts *options) error {
	var sessionOpts []searcher.Option
	if cfg.Metrics.Enabled {
		m := metrics.New(prometheus.DefaultRegisterer)
		shutdown := m.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
		sessionOpts = append(sessionOpts, searcher.WithMetrics(m))
	}

	session, err := searcher.Open(ctx, cfg, sessionOpts...)
	if err != nil {
		return err
	}
	defer session.Close()

	in, err := os.Open(opts.queries)
	if err != nil {
		return fmt.Errorf("opening queries: %w", err)
	}
	defer in.Close()

	start := time.Now()
	var out bytes.Buffer
	if err := searcher.RunBatch(ctx, session, in, &out, cfg.Search.Workers); err != nil {
		return err
	}
	if cfg.Search.RecordTime {
		slog.Info("queries answered",
			"workers", cfg.Search.Workers,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}

	if err := os.WriteFile(opts.output, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}
