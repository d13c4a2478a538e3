// Package batch executes many independent trials of one configuration.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"betting-risk-lab/internal/domain"
	"betting-risk-lab/internal/observability"
	"betting-risk-lab/internal/random"
	"betting-risk-lab/internal/simulation"
)

// DefaultChunkSize is used when no chunk size is configured.
const DefaultChunkSize = 100

// Runner errors
var (
	ErrInvalidTrialCount = errors.New("number of trials must be >= 0")
)

// ExecutionError reports an unexpected failure inside one trial.
type ExecutionError struct {
	Trial int
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("trial %d failed: %v", e.Trial, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ProgressFunc is called between chunks with the number of finished trials.
type ProgressFunc func(completed, total int)

// Runner executes trials in chunks on a bounded worker pool.
type Runner struct {
	workers   int
	chunkSize int
	sources   random.SourceFactory
	logger    *log.Logger
	metrics   *observability.Metrics
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Workers   int                  // <= 0 uses GOMAXPROCS
	ChunkSize int                  // <= 0 uses DefaultChunkSize
	Sources   random.SourceFactory // nil derives sources from cfg.Seed
	Logger    *log.Logger
	Metrics   *observability.Metrics
}

// NewRunner creates a batch runner.
func NewRunner(opts RunnerOptions) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	return &Runner{
		workers:   workers,
		chunkSize: chunk,
		sources:   opts.Sources,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Run executes n trials of cfg using the runner's chunk size.
func (r *Runner) Run(ctx context.Context, cfg domain.SimulationConfig, n int, progress ProgressFunc) ([]domain.TrialOutcome, error) {
	return r.RunChunks(ctx, cfg, n, r.chunkSize, progress)
}

// RunChunks executes n trials of cfg, chunkSize trials at a time.
// Outcome i always belongs to trial i. Cancellation is checked between chunks;
// the first failing trial aborts the batch and no outcomes are returned.
func (r *Runner) RunChunks(ctx context.Context, cfg domain.SimulationConfig, n, chunkSize int, progress ProgressFunc) ([]domain.TrialOutcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, ErrInvalidTrialCount
	}
	if chunkSize <= 0 {
		chunkSize = r.chunkSize
	}

	sources := r.sources
	if sources == nil {
		sources = random.Factory(cfg.Seed)
	}

	start := time.Now()
	outcomes := make([]domain.TrialOutcome, n)

	for lo := 0; lo < n; lo += chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hi := min(lo+chunkSize, n)

		var g errgroup.Group
		g.SetLimit(r.workers)
		for i := lo; i < hi; i++ {
			g.Go(func() error {
				return runTrial(cfg, i, sources, &outcomes[i])
			})
		}
		if err := g.Wait(); err != nil {
			r.metrics.RecordBatch(string(cfg.StrategyType), 0, 0, 0, err)
			r.logf("batch %s aborted: %v", cfg.StrategyType, err)
			return nil, err
		}

		if progress != nil {
			progress(hi, n)
		}
		runtime.Gosched()
	}

	ruined := 0
	for i := range outcomes {
		if outcomes[i].Ruined {
			ruined++
		}
	}
	r.metrics.RecordBatch(string(cfg.StrategyType), n, ruined, time.Since(start).Seconds(), nil)

	return outcomes, nil
}

// runTrial executes one trial and turns panics into ExecutionError.
func runTrial(cfg domain.SimulationConfig, trial int, sources random.SourceFactory, dst *domain.TrialOutcome) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &ExecutionError{Trial: trial, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	out, _, err := simulation.Run(cfg, sources(trial), -1)
	if err != nil {
		return &ExecutionError{Trial: trial, Err: err}
	}
	*dst = out
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
