package grid

import "betting-risk-lab/internal/domain"

// Progress is one progress report of a generation.
type Progress struct {
	CompletedCells int            `json:"completed_cells"`
	TotalCells     int            `json:"total_cells"`
	Percent        float64        `json:"percent"` // 0..100, never decreases
	Cell           domain.CellKey `json:"cell"`
}

// ProgressFunc receives progress reports. It is called from the generating goroutine.
type ProgressFunc func(Progress)

// progressCombiner merges cell completion and intra-cell trial progress into
// one monotonically increasing percentage.
type progressCombiner struct {
	total int
	last  float64
}

// percent returns (completed + fraction) / total * 100, clamped so it never
// decreases and never exceeds 100.
func (c *progressCombiner) percent(completed int, fraction float64) float64 {
	if c.total <= 0 {
		return 100
	}
	fraction = min(max(fraction, 0), 1)
	p := (float64(completed) + fraction) / float64(c.total) * 100
	p = min(p, 100)
	if p < c.last {
		p = c.last
	}
	c.last = p
	return p
}
