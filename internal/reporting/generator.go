// Package reporting renders generated grids as CSV and Markdown reports.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"betting-risk-lab/internal/domain"
	"betting-risk-lab/internal/grid"
	"betting-risk-lab/internal/metrics"
	"betting-risk-lab/internal/storage"
)

// ErrNoCache is returned by Load when the generator has no cache.
var ErrNoCache = errors.New("reporting: no grid cache configured")

// Generator produces reports from grids.
type Generator struct {
	cache storage.GridCache
	now   func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. cache may be nil when only
// Build is used.
func NewGenerator(cache storage.GridCache) *Generator {
	return &Generator{
		cache: cache,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Load builds the report of the grid cached under fingerprint.
func (g *Generator) Load(ctx context.Context, fingerprint string) (*Report, error) {
	if g.cache == nil {
		return nil, ErrNoCache
	}
	cached, err := g.cache.Get(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("load grid %s: %w", fingerprint, err)
	}
	return g.Build(cached), nil
}

// Build produces a report for a generated grid.
func (g *Generator) Build(gr *domain.Grid) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		Summary:     make(map[domain.Classification]int),
	}
	if gr == nil {
		return r
	}

	r.Fingerprint = gr.Fingerprint
	r.GridGeneratedAt = gr.GeneratedAt
	r.SimulationsPerCell = gr.SimulationsPerCell
	r.Rounds = gr.Rounds
	r.InitialBalance = gr.InitialBalance
	r.CellCount = len(gr.Cells)

	for _, c := range gr.Cells {
		r.Summary[c.Note]++
	}

	result := grid.BuildResult(gr)
	for _, w := range gr.WinRates {
		for _, rr := range gr.RiskRatios {
			entries := result[grid.AxisKey(w)][grid.AxisKey(rr)]
			if len(entries) == 0 {
				continue
			}
			section := ScenarioSection{
				WinRate:   w,
				RiskRatio: rr,
				Kelly:     metrics.KellyFraction(w, rr),
				Rows:      make([]StrategyRow, 0, len(entries)),
			}
			for _, e := range entries {
				cell, ok := gr.Cell(w, rr, e.StrategyType)
				if !ok {
					continue
				}
				section.Rows = append(section.Rows, newStrategyRow(cell))
			}
			r.Scenarios = append(r.Scenarios, section)
		}
	}

	return r
}

func newStrategyRow(c domain.GridCell) StrategyRow {
	s := c.Stats
	return StrategyRow{
		WinRate:        c.Key.WinRate,
		RiskRatio:      c.Key.RiskRatio,
		Strategy:       c.Key.Strategy,
		Note:           c.Note,
		RuinPct:        s.RuinPct,
		ProfitablePct:  s.ProfitablePct,
		EarlyStopPct:   s.EarlyStopPct,
		ExpectedProfit: s.ExpectedProfit,
		MeanROI:        s.MeanROI,
		MedianROI:      s.MedianROI,
		MaxDrawdownPct: s.MaxDrawdownMean,
		Sharpe:         s.SharpeRatio,
		Calmar:         s.CalmarRatio,
		Sortino:        s.SortinoRatio,
		MeanRounds:     s.MeanRounds,
	}
}

// Rows flattens every scenario section in report order.
func (r *Report) Rows() []StrategyRow {
	var rows []StrategyRow
	for _, s := range r.Scenarios {
		rows = append(rows, s.Rows...)
	}
	return rows
}
