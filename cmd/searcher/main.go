package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/config"
	rrerrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/resilience"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr, prometheus.DefaultRegisterer)
	stop()
	os.Exit(code)
}

// run serves until ctx is cancelled, then waits for in-flight requests and
// the analytics drain before returning the process exit code.
func run(ctx context.Context, args []string, stderr io.Writer, reg prometheus.Registerer) int {
	fs := flag.NewFlagSet("searcher", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (defaults plus RR_* environment overrides when empty)")
	if err := fs.Parse(args); err != nil {
		return rrerrors.ExitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return rrerrors.ExitUsage
	}

	logger.Setup(stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port)

	m := metrics.New(reg)
	session, err := searcher.Open(ctx, cfg, searcher.WithMetrics(m))
	if err != nil {
		slog.Error("failed to load index", "error", err)
		return rrerrors.ExitCode(err)
	}
	defer session.Close()

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		ix := session.Index()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d terms, %d documents", len(ix.Dictionary.Terms), ix.Dictionary.N()),
		}
	})

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		var redisClient *pkgredis.Client
		err := resilience.Retry(ctx, "redis connect", resilience.RetryConfig{MaxAttempts: 3}, func(ctx context.Context) error {
			var err error
			redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
			return err
		})
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.PingCheck(redisClient.Ping, true))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var publisher analytics.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
		defer producer.Close()
		publisher = producer
		slog.Info("publishing query events", "topic", cfg.Kafka.Topics.QueryEvents)
	}
	aggregator := analytics.NewAggregator()
	collector := analytics.NewCollector(publisher, aggregator, 10000)
	collector.Start(context.WithoutCancel(ctx))
	defer collector.Close()

	h := handler.New(session, queryCache, collector, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	analyticsH := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", m.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimitPerMinute > 0 {
		chain = middleware.RateLimit(middleware.NewLimiter(cfg.Server.RateLimitPerMinute))(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		return rrerrors.ExitRuntime
	}
	<-shutdownDone

	slog.Info("search service stopped")
	return rrerrors.ExitOK
}
