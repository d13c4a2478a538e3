package grid

import (
	"fmt"
	"sync"

	"betting-risk-lab/internal/domain"
)

// State is the lifecycle state of one generation.
type State string

// Generation states
const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Snapshot is a point-in-time copy of a Tracker.
type Snapshot struct {
	State          State           `json:"state"`
	Cell           *domain.CellKey `json:"cell,omitempty"` // cell being generated
	CompletedCells int             `json:"completed_cells"`
	TotalCells     int             `json:"total_cells"`
	Percent        float64         `json:"percent"`
	Cached         bool            `json:"cached,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Tracker records the state machine of one generation:
// Idle -> Generating -> Complete | Failed. Idle may also fail directly
// (invalid request) and complete directly (cache hit).
// Safe for concurrent use.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	err  error
}

// NewTracker creates a tracker in the Idle state.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{State: StateIdle}}
}

func (t *Tracker) transition(from []State, to State) error {
	for _, s := range from {
		if t.snap.State == s {
			t.snap.State = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.snap.State, to)
}

// Start moves Idle to Generating.
func (t *Tracker) Start(totalCells int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.transition([]State{StateIdle}, StateGenerating); err != nil {
		return err
	}
	t.snap.TotalCells = totalCells
	return nil
}

// Enter records the cell currently being generated.
func (t *Tracker) Enter(key domain.CellKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key
	t.snap.Cell = &k
}

// Progress records completed cells and the combined percentage.
// The percentage never decreases.
func (t *Tracker) Progress(completedCells int, percent float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.CompletedCells = completedCells
	if percent > t.snap.Percent {
		t.snap.Percent = percent
	}
}

// Complete moves Idle or Generating to Complete with all totalCells done.
// A cache hit completes from Idle, so the total is set here as well.
func (t *Tracker) Complete(totalCells int, cached bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.transition([]State{StateIdle, StateGenerating}, StateComplete); err != nil {
		return err
	}
	t.snap.Cell = nil
	t.snap.TotalCells = totalCells
	t.snap.CompletedCells = totalCells
	t.snap.Percent = 100
	t.snap.Cached = cached
	return nil
}

// Fail moves Idle or Generating to Failed with the triggering error.
func (t *Tracker) Fail(err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if terr := t.transition([]State{StateIdle, StateGenerating}, StateFailed); terr != nil {
		return terr
	}
	t.err = err
	if err != nil {
		t.snap.Error = err.Error()
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.snap
	if s.Cell != nil {
		k := *s.Cell
		s.Cell = &k
	}
	return s
}

// Err returns the error recorded by Fail.
func (t *Tracker) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}
