// Package grid generates win-rate x risk-ratio x strategy scenario grids.
package grid

import (
	"context"
	"errors"
	"log"
	"time"

	"betting-risk-lab/internal/batch"
	"betting-risk-lab/internal/domain"
	"betting-risk-lab/internal/fingerprint"
	"betting-risk-lab/internal/metrics"
	"betting-risk-lab/internal/observability"
	"betting-risk-lab/internal/storage"
)

// BatchRunner runs the trials of one cell.
type BatchRunner interface {
	RunChunks(ctx context.Context, cfg domain.SimulationConfig, n, chunkSize int, progress batch.ProgressFunc) ([]domain.TrialOutcome, error)
}

// Compile-time interface check
var _ BatchRunner = (*batch.Runner)(nil)

// Generation is the result of one Generate call.
type Generation struct {
	Grid        *domain.Grid
	Fingerprint string
	Cached      bool
	Duration    time.Duration
}

// Generator builds grids cell by cell. It keeps no state between runs.
type Generator struct {
	runner  BatchRunner
	cache   storage.GridCache
	logger  *log.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// GeneratorOptions contains configuration for creating a Generator.
type GeneratorOptions struct {
	Runner  BatchRunner       // required
	Cache   storage.GridCache // optional
	Logger  *log.Logger       // optional, nil is silent
	Metrics *observability.Metrics
	Now     func() time.Time // optional, defaults to time.Now
}

// NewGenerator creates a grid generator.
func NewGenerator(opts GeneratorOptions) (*Generator, error) {
	if opts.Runner == nil {
		return nil, ErrNoRunner
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Generator{
		runner:  opts.Runner,
		cache:   opts.Cache,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     now,
	}, nil
}

// Generate validates req and builds its grid with a private tracker.
func (g *Generator) Generate(ctx context.Context, req domain.GridRequest, progress ProgressFunc) (*Generation, error) {
	return g.Track(ctx, req, NewTracker(), progress)
}

// Track builds the grid for req, recording its lifecycle in tracker.
//
// With req.UseCache set, a grid cached under the request fingerprint is returned
// without running any simulation. Otherwise cells run in Keys() order; the first
// failing cell aborts the generation with a *CellError and nothing is returned.
// Cancellation is honored between cells and between batch chunks.
// A completed grid is written to the cache whenever one is configured.
func (g *Generator) Track(ctx context.Context, req domain.GridRequest, tracker *Tracker, progress ProgressFunc) (*Generation, error) {
	start := g.now()

	if err := req.Validate(); err != nil {
		_ = tracker.Fail(err)
		return nil, err
	}

	fp := fingerprint.Compute(req)
	total := req.TotalCells()

	if req.UseCache {
		if cached := g.lookup(ctx, fp); cached != nil {
			if err := tracker.Complete(total, true); err != nil {
				return nil, err
			}
			emit(progress, Progress{CompletedCells: total, TotalCells: total, Percent: 100})
			g.metrics.GenerationFinished("cached", 0)
			g.logf("grid %s served from cache", fp)
			return &Generation{Grid: cached, Fingerprint: fp, Cached: true}, nil
		}
	}

	if err := tracker.Start(total); err != nil {
		return nil, err
	}
	g.metrics.GenerationStarted()
	g.logf("generating grid %s: %d cells x %d trials", fp, total, req.SimulationsPerCell)

	grid, err := g.build(ctx, req, tracker, progress)
	elapsed := g.now().Sub(start)
	if err != nil {
		_ = tracker.Fail(err)
		g.metrics.GenerationFinished("failed", elapsed.Seconds())
		g.logf("grid %s failed: %v", fp, err)
		return nil, err
	}

	grid.Fingerprint = fp
	grid.GeneratedAt = g.now().UTC()
	g.store(ctx, fp, grid)

	if err := tracker.Complete(total, false); err != nil {
		return nil, err
	}
	g.metrics.GenerationFinished("complete", elapsed.Seconds())
	g.logf("grid %s complete in %s", fp, elapsed)

	return &Generation{Grid: grid, Fingerprint: fp, Duration: elapsed}, nil
}

// build runs every cell. Any error discards the partial grid.
func (g *Generator) build(ctx context.Context, req domain.GridRequest, tracker *Tracker, progress ProgressFunc) (*domain.Grid, error) {
	keys := req.Keys()
	combiner := &progressCombiner{total: len(keys)}

	grid := &domain.Grid{
		WinRates:           append([]float64(nil), req.WinRates...),
		RiskRatios:         append([]float64(nil), req.RiskRatios...),
		Strategies:         append([]domain.StrategyType(nil), req.Strategies...),
		SimulationsPerCell: req.SimulationsPerCell,
		Rounds:             req.Rounds,
		InitialBalance:     req.InitialBalance,
		Cells:              make([]domain.GridCell, 0, len(keys)),
	}

	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, newCellError(key, err)
		}
		tracker.Enter(key)

		report := func(fraction float64) {
			p := Progress{CompletedCells: i, TotalCells: len(keys), Percent: combiner.percent(i, fraction), Cell: key}
			tracker.Progress(i, p.Percent)
			emit(progress, p)
		}

		cfg := req.CellConfig(key)
		outcomes, err := g.runner.RunChunks(ctx, cfg, req.SimulationsPerCell, req.BatchSize, func(done, total int) {
			if total > 0 {
				report(float64(done) / float64(total))
			}
		})
		if err != nil {
			return nil, newCellError(key, err)
		}

		stats := metrics.Aggregate(outcomes, req.InitialBalance)
		grid.Cells = append(grid.Cells, domain.GridCell{
			Key:   key,
			Stats: stats,
			Note:  metrics.Classify(stats),
		})
		g.metrics.RecordCell()

		p := Progress{CompletedCells: i + 1, TotalCells: len(keys), Percent: combiner.percent(i+1, 0), Cell: key}
		tracker.Progress(i+1, p.Percent)
		emit(progress, p)
	}

	return grid, nil
}

// lookup returns the cached grid or nil. Cache failures are logged, not fatal.
func (g *Generator) lookup(ctx context.Context, fp string) *domain.Grid {
	if g.cache == nil {
		return nil
	}
	start := time.Now()
	cached, err := g.cache.Get(ctx, fp)
	switch {
	case err == nil:
		g.metrics.RecordCacheOp("get", time.Since(start).Seconds(), nil)
		g.metrics.RecordCacheLookup("hit")
		return cached
	case errors.Is(err, storage.ErrNotFound):
		g.metrics.RecordCacheOp("get", time.Since(start).Seconds(), nil)
		g.metrics.RecordCacheLookup("miss")
	default:
		g.metrics.RecordCacheOp("get", time.Since(start).Seconds(), err)
		g.metrics.RecordCacheLookup("error")
		g.logf("cache lookup %s failed: %v", fp, err)
	}
	return nil
}

// store writes a finished grid to the cache. Failures are logged, not fatal.
func (g *Generator) store(ctx context.Context, fp string, grid *domain.Grid) {
	if g.cache == nil {
		return
	}
	start := time.Now()
	err := g.cache.Set(ctx, fp, grid)
	g.metrics.RecordCacheOp("set", time.Since(start).Seconds(), err)
	if err != nil {
		g.logf("cache store %s failed: %v", fp, err)
	}
}

func (g *Generator) logf(format string, args ...any) {
	if g.logger != nil {
		g.logger.Printf(format, args...)
	}
}

func emit(fn ProgressFunc, p Progress) {
	if fn != nil {
		fn(p)
	}
}
