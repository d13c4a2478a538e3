// Package main provides the HTTP server that runs simulations and grid
// generations on demand:
// - POST /api/simulate runs one trial
// - /api/grids starts, inspects, streams and cancels grid generations
// - /health and /metrics for monitoring
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"betting-risk-lab/internal/api"
	"betting-risk-lab/internal/batch"
	"betting-risk-lab/internal/grid"
	"betting-risk-lab/internal/observability"
	"betting-risk-lab/internal/storage/backend"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")
	cacheBackend := flag.String("cache", envOr("GRID_CACHE", backend.Memory), "Cache backend: none, memory, postgres, clickhouse")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	migrate := flag.Bool("migrate", true, "Apply embedded migrations on startup")
	workers := flag.Int("workers", 0, "Parallel workers per batch (0 = GOMAXPROCS)")
	pollInterval := flag.Duration("poll-interval", api.DefaultPollInterval, "Progress stream sampling interval")
	jobRetention := flag.Duration("job-retention", 24*time.Hour, "How long finished grid jobs stay queryable")
	pruneInterval := flag.Duration("prune-interval", 10*time.Minute, "Finished job pruning interval")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache, cleanup, err := backend.Open(ctx, backend.Config{
		Backend:       *cacheBackend,
		PostgresDSN:   *postgresDSN,
		ClickhouseDSN: *clickhouseDSN,
		Migrate:       *migrate,
	})
	if err != nil {
		logger.Fatalf("Failed to open cache: %v", err)
	}
	defer cleanup()
	logger.Printf("Grid cache backend: %s", *cacheBackend)

	// Metrics
	registry := prometheus.NewRegistry()
	m := observability.NewMetrics("", registry)

	// Components
	runner := batch.NewRunner(batch.RunnerOptions{
		Workers: *workers,
		Logger:  log.New(os.Stdout, "[batch] ", log.LstdFlags),
		Metrics: m,
	})
	gen, err := grid.NewGenerator(grid.GeneratorOptions{
		Runner:  runner,
		Cache:   cache,
		Logger:  log.New(os.Stdout, "[grid] ", log.LstdFlags),
		Metrics: m,
	})
	if err != nil {
		logger.Fatalf("Failed to create generator: %v", err)
	}

	jobs := api.NewJobs(gen, ctx)
	srv, err := api.NewServer(api.Options{
		Jobs:         jobs,
		Cache:        cache,
		Gatherer:     registry,
		Logger:       logger,
		PollInterval: *pollInterval,
	})
	if err != nil {
		logger.Fatalf("Failed to create API server: %v", err)
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	go pruneJobs(ctx, jobs, *pruneInterval, *jobRetention, logger)

	logger.Printf("Starting HTTP server on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}

	// Running jobs observe the cancelled base context between chunks.
	jobs.CancelAll()
	jobs.Wait()
	logger.Println("Shutdown complete")
}

// pruneJobs periodically drops finished jobs older than retention.
func pruneJobs(ctx context.Context, jobs *api.Jobs, interval, retention time.Duration, logger *log.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := jobs.Prune(time.Now().Add(-retention)); n > 0 {
				logger.Printf("Pruned %d finished grid jobs", n)
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
