package grid

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betting-risk-lab/internal/batch"
	"betting-risk-lab/internal/domain"
	"betting-risk-lab/internal/fingerprint"
	"betting-risk-lab/internal/storage"
	"betting-risk-lab/internal/storage/memory"
)

// countingRunner wraps a BatchRunner and counts RunChunks calls.
type countingRunner struct {
	inner BatchRunner
	calls atomic.Int32
	// failOn makes the call for this strategy fail with failErr.
	failOn  domain.StrategyType
	failErr error
}

func (r *countingRunner) RunChunks(ctx context.Context, cfg domain.SimulationConfig, n, chunkSize int, progress batch.ProgressFunc) ([]domain.TrialOutcome, error) {
	r.calls.Add(1)
	if r.failOn != "" && cfg.StrategyType == r.failOn {
		return nil, r.failErr
	}
	return r.inner.RunChunks(ctx, cfg, n, chunkSize, progress)
}

// failingCache fails every operation.
type failingCache struct{}

func (failingCache) Get(context.Context, string) (*domain.Grid, error) {
	return nil, errors.New("down")
}
func (failingCache) Set(context.Context, string, *domain.Grid) error { return errors.New("down") }
func (failingCache) Delete(context.Context, string) error            { return errors.New("down") }
func (failingCache) Clear(context.Context) error                     { return errors.New("down") }

var _ storage.GridCache = failingCache{}

func testRequest() domain.GridRequest {
	return domain.GridRequest{
		WinRates:           []float64{0.5},
		RiskRatios:         []float64{1.0},
		Strategies:         []domain.StrategyType{domain.StrategyRaw},
		SimulationsPerCell: 40,
		BatchSize:          10,
		Rounds:             100,
		InitialBalance:     1000,
		BaseBet:            10,
		MaxBetPercent:      10,
		MaxBetSize:         100,
		MinBetSize:         1,
		StrategyConfig:     domain.StrategyParams{SmartDoubleX: 3, AntiSmartDoubleX: 3},
		Seed:               11,
		UseCache:           true,
	}
}

func newTestGenerator(t *testing.T, runner BatchRunner, cache storage.GridCache) *Generator {
	t.Helper()
	g, err := NewGenerator(GeneratorOptions{
		Runner: runner,
		Cache:  cache,
		Now:    func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return g
}

func TestGenerate_SingleCellThenCacheHit(t *testing.T) {
	ctx := context.Background()
	runner := &countingRunner{inner: batch.NewRunner(batch.RunnerOptions{Workers: 2})}
	cache := memory.NewGridCache()
	gen := newTestGenerator(t, runner, cache)

	first, err := gen.Generate(ctx, testRequest(), nil)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	require.Len(t, first.Grid.Cells, 1)
	assert.Equal(t, int32(1), runner.calls.Load())

	res := BuildResult(first.Grid)
	require.Len(t, res, 1)
	require.Len(t, res["0.50"], 1)
	require.Len(t, res["0.50"]["1.00"], 1)
	assert.Equal(t, domain.StrategyRaw, res["0.50"]["1.00"][0].StrategyType)

	second, err := gen.Generate(ctx, testRequest(), nil)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, int32(1), runner.calls.Load(), "cached regeneration must not run simulations")
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Grid.Cells, second.Grid.Cells)
}

func TestTrack_CacheHitReportsCellCount(t *testing.T) {
	ctx := context.Background()
	req := testRequest()
	req.Strategies = []domain.StrategyType{domain.StrategyRaw, domain.StrategyLinear}
	gen := newTestGenerator(t, batch.NewRunner(batch.RunnerOptions{}), memory.NewGridCache())

	_, err := gen.Generate(ctx, req, nil)
	require.NoError(t, err)

	tracker := NewTracker()
	out, err := gen.Track(ctx, req, tracker, nil)
	require.NoError(t, err)
	require.True(t, out.Cached)

	snap := tracker.Snapshot()
	assert.Equal(t, StateComplete, snap.State)
	assert.True(t, snap.Cached)
	assert.Equal(t, 2, snap.TotalCells)
	assert.Equal(t, 2, snap.CompletedCells)
	assert.Equal(t, 100.0, snap.Percent)
}

func TestGenerate_CacheDisabledRecomputes(t *testing.T) {
	ctx := context.Background()
	runner := &countingRunner{inner: batch.NewRunner(batch.RunnerOptions{})}
	gen := newTestGenerator(t, runner, memory.NewGridCache())

	req := testRequest()
	req.UseCache = false
	_, err := gen.Generate(ctx, req, nil)
	require.NoError(t, err)
	_, err = gen.Generate(ctx, req, nil)
	require.NoError(t, err)

	assert.Equal(t, int32(2), runner.calls.Load())
}

func TestGenerate_ChangedRequestMissesCache(t *testing.T) {
	ctx := context.Background()
	runner := &countingRunner{inner: batch.NewRunner(batch.RunnerOptions{})}
	gen := newTestGenerator(t, runner, memory.NewGridCache())

	_, err := gen.Generate(ctx, testRequest(), nil)
	require.NoError(t, err)

	req := testRequest()
	req.Rounds = 101
	gen2, err := gen.Generate(ctx, req, nil)
	require.NoError(t, err)
	assert.False(t, gen2.Cached)
	assert.Equal(t, int32(2), runner.calls.Load())
}

func TestGenerate_CellOrderAndProgress(t *testing.T) {
	req := testRequest()
	req.WinRates = []float64{0.4, 0.6}
	req.RiskRatios = []float64{1, 2}
	req.Strategies = []domain.StrategyType{domain.StrategyMartingale, domain.StrategyRaw}
	req.UseCache = false

	gen := newTestGenerator(t, batch.NewRunner(batch.RunnerOptions{}), nil)

	var reports []Progress
	out, err := gen.Generate(context.Background(), req, func(p Progress) {
		reports = append(reports, p)
	})
	require.NoError(t, err)

	require.Len(t, out.Grid.Cells, 8)
	for i, key := range req.Keys() {
		assert.Equal(t, key, out.Grid.Cells[i].Key)
	}

	require.NotEmpty(t, reports)
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i].Percent, reports[i-1].Percent, "progress must not decrease")
	}
	last := reports[len(reports)-1]
	assert.Equal(t, 100.0, last.Percent)
	assert.Equal(t, 8, last.CompletedCells)
	assert.Equal(t, 8, last.TotalCells)
}

func TestGenerate_CellFailureAbortsWithCoordinates(t *testing.T) {
	req := testRequest()
	req.Strategies = []domain.StrategyType{domain.StrategyRaw, domain.StrategyMartingale, domain.StrategyLinear}
	req.UseCache = true

	boom := &batch.ExecutionError{Trial: 3, Err: errors.New("overflow")}
	runner := &countingRunner{
		inner:   batch.NewRunner(batch.RunnerOptions{}),
		failOn:  domain.StrategyMartingale,
		failErr: boom,
	}
	cache := memory.NewGridCache()
	gen := newTestGenerator(t, runner, cache)

	tracker := NewTracker()
	out, err := gen.Track(context.Background(), req, tracker, nil)
	assert.Nil(t, out)

	var cellErr *CellError
	require.ErrorAs(t, err, &cellErr)
	assert.Equal(t, 0.5, cellErr.WinRate)
	assert.Equal(t, 1.0, cellErr.RiskRatio)
	assert.Equal(t, domain.StrategyMartingale, cellErr.Strategy)

	var execErr *batch.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 3, execErr.Trial)

	assert.Equal(t, int32(2), runner.calls.Load(), "generation must stop at the failing cell")
	assert.Equal(t, StateFailed, tracker.Snapshot().State)
	assert.Equal(t, 0, cache.Len(), "partial grids must not be cached")
}

func TestGenerate_Cancellation(t *testing.T) {
	req := testRequest()
	req.Strategies = domain.AllStrategies
	req.UseCache = false

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &countingRunner{inner: batch.NewRunner(batch.RunnerOptions{})}
	gen := newTestGenerator(t, runner, nil)

	_, err := gen.Generate(ctx, req, func(p Progress) {
		if p.CompletedCells == 2 {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, runner.calls.Load(), int32(len(domain.AllStrategies)))
}

func TestGenerate_InvalidRequest(t *testing.T) {
	req := testRequest()
	req.WinRates = []float64{1.2}

	runner := &countingRunner{inner: batch.NewRunner(batch.RunnerOptions{})}
	gen := newTestGenerator(t, runner, nil)

	tracker := NewTracker()
	_, err := gen.Track(context.Background(), req, tracker, nil)
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Equal(t, int32(0), runner.calls.Load())
	assert.Equal(t, StateFailed, tracker.Snapshot().State)
}

func TestGenerate_CollidingAxesRejected(t *testing.T) {
	req := testRequest()
	req.WinRates = []float64{0.501, 0.504}
	req.RiskRatios = []float64{1, 1}

	runner := &countingRunner{inner: batch.NewRunner(batch.RunnerOptions{})}
	gen := newTestGenerator(t, runner, nil)

	_, err := gen.Generate(context.Background(), req, nil)
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.ErrorContains(t, err, "win_rates[1]")
	assert.ErrorContains(t, err, "risk_ratios[1]")
	assert.Equal(t, int32(0), runner.calls.Load())
}

func TestGenerate_OneEntryPerStrategyPerCell(t *testing.T) {
	req := testRequest()
	req.WinRates = []float64{0.45, 0.5, 0.55}
	req.RiskRatios = []float64{1, 1.5}
	req.Strategies = []domain.StrategyType{domain.StrategyRaw, domain.StrategyLinear, domain.StrategyMartingale}
	req.UseCache = false

	gen := newTestGenerator(t, batch.NewRunner(batch.RunnerOptions{}), nil)
	out, err := gen.Generate(context.Background(), req, nil)
	require.NoError(t, err)

	res := BuildResult(out.Grid)
	require.Len(t, res, len(req.WinRates))
	for _, w := range req.WinRates {
		row := res[AxisKey(w)]
		require.Len(t, row, len(req.RiskRatios), "winRate %s", AxisKey(w))
		for _, rr := range req.RiskRatios {
			entries := row[AxisKey(rr)]
			require.Len(t, entries, len(req.Strategies))
			seen := make(map[domain.StrategyType]bool)
			for _, e := range entries {
				assert.False(t, seen[e.StrategyType], "strategy %s listed twice in [%s][%s]", e.StrategyType, AxisKey(w), AxisKey(rr))
				seen[e.StrategyType] = true
			}
		}
	}
}

func TestGenerate_CacheFailureIsNotFatal(t *testing.T) {
	var buf bytes.Buffer
	gen, err := NewGenerator(GeneratorOptions{
		Runner: batch.NewRunner(batch.RunnerOptions{}),
		Cache:  failingCache{},
		Logger: log.New(&buf, "[grid] ", 0),
	})
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), testRequest(), nil)
	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.Contains(t, buf.String(), "cache lookup")
	assert.Contains(t, buf.String(), "cache store")
}

func TestGenerate_FingerprintAndTimestamp(t *testing.T) {
	gen := newTestGenerator(t, batch.NewRunner(batch.RunnerOptions{}), nil)

	out, err := gen.Generate(context.Background(), testRequest(), nil)
	require.NoError(t, err)
	assert.Equal(t, fingerprint.Compute(testRequest()), out.Grid.Fingerprint)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), out.Grid.GeneratedAt)
}

func TestNewGenerator_RequiresRunner(t *testing.T) {
	_, err := NewGenerator(GeneratorOptions{})
	assert.ErrorIs(t, err, ErrNoRunner)
}
