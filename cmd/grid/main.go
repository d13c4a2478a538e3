package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"betting-risk-lab/internal/batch"
	"betting-risk-lab/internal/config"
	"betting-risk-lab/internal/grid"
	"betting-risk-lab/internal/reporting"
	"betting-risk-lab/internal/storage/backend"
)

func main() {
	// Parse flags (env vars as defaults)
	configPath := flag.String("config", "grid.yaml", "Grid request YAML file (missing file uses defaults)")
	outputDir := flag.String("output-dir", "output", "Output directory for grid.json, grid.csv and grid.md")
	cacheBackend := flag.String("cache", envOr("GRID_CACHE", backend.Memory), "Cache backend: none, memory, postgres, clickhouse")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	migrate := flag.Bool("migrate", true, "Apply embedded migrations to the cache database")
	noCache := flag.Bool("no-cache", false, "Ignore cached grids (the result is still stored)")
	workers := flag.Int("workers", 0, "Parallel workers per batch (0 = GOMAXPROCS)")
	flag.Parse()

	logger := log.New(os.Stderr, "[grid] ", log.LstdFlags)

	req, err := config.LoadGrid(*configPath)
	if err != nil {
		logger.Fatalf("Load grid config: %v", err)
	}
	if *noCache {
		req.UseCache = false
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling generation...", sig)
		cancel()
	}()

	cache, cleanup, err := backend.Open(ctx, backend.Config{
		Backend:       *cacheBackend,
		PostgresDSN:   *postgresDSN,
		ClickhouseDSN: *clickhouseDSN,
		Migrate:       *migrate,
	})
	if err != nil {
		logger.Fatalf("Open cache: %v", err)
	}
	defer cleanup()

	gen, err := grid.NewGenerator(grid.GeneratorOptions{
		Runner: batch.NewRunner(batch.RunnerOptions{Workers: *workers}),
		Cache:  cache,
		Logger: logger,
	})
	if err != nil {
		logger.Fatalf("Create generator: %v", err)
	}

	lastCell := -1
	res, err := gen.Generate(ctx, req, func(p grid.Progress) {
		if p.CompletedCells != lastCell {
			lastCell = p.CompletedCells
			logger.Printf("Progress: %d/%d cells (%.1f%%)", p.CompletedCells, p.TotalCells, p.Percent)
		}
	})
	if err != nil {
		logger.Fatalf("Generate grid: %v", err)
	}

	if err := writeOutputs(*outputDir, res); err != nil {
		logger.Fatalf("Write outputs: %v", err)
	}

	source := "generated"
	if res.Cached {
		source = "cache"
	}
	fmt.Printf("Grid %s (%s, %d cells) written to:\n", res.Fingerprint, source, len(res.Grid.Cells))
	fmt.Printf("  - %s\n", filepath.Join(*outputDir, "grid.json"))
	fmt.Printf("  - %s\n", filepath.Join(*outputDir, "grid.csv"))
	fmt.Printf("  - %s\n", filepath.Join(*outputDir, "grid.md"))
}

// writeOutputs writes the nested JSON result and the CSV and Markdown reports.
func writeOutputs(dir string, res *grid.Generation) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(grid.BuildResult(res.Grid), "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "grid.json"), data, 0o644); err != nil {
		return fmt.Errorf("write grid.json: %w", err)
	}

	report := reporting.NewGenerator(nil).Build(res.Grid)
	if err := os.WriteFile(filepath.Join(dir, "grid.csv"), []byte(reporting.RenderCSV(report.Rows())), 0o644); err != nil {
		return fmt.Errorf("write grid.csv: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "grid.md"), []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return fmt.Errorf("write grid.md: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
