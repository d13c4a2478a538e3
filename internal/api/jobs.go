package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"betting-risk-lab/internal/domain"
	"betting-risk-lab/internal/grid"
)

// Job is one asynchronous grid generation.
type Job struct {
	ID        string
	Request   domain.GridRequest
	CreatedAt time.Time

	tracker *grid.Tracker
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.RWMutex
	result *grid.Generation
}

// Snapshot returns the job's current generation state.
func (j *Job) Snapshot() grid.Snapshot {
	return j.tracker.Snapshot()
}

// Result returns the finished generation, or nil while running or after failure.
func (j *Job) Result() *grid.Generation {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.result
}

// Outcome returns the job's snapshot together with its result. The tracker turns
// terminal just before the result is published, so a terminal snapshot waits for
// Done (or ctx) before the result is read.
func (j *Job) Outcome(ctx context.Context) (grid.Snapshot, *grid.Generation) {
	snap := j.tracker.Snapshot()
	if snap.State.Terminal() {
		select {
		case <-j.done:
		case <-ctx.Done():
		}
	}
	return snap, j.Result()
}

// Err returns the error that failed the job.
func (j *Job) Err() error {
	return j.tracker.Err()
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Cancel stops the generation between chunks. It is a no-op once the job finished.
func (j *Job) Cancel() {
	j.cancel()
}

// Jobs is the registry of grid generations started through the API.
type Jobs struct {
	gen  *grid.Generator
	base context.Context
	now  func() time.Time

	mu   sync.RWMutex
	jobs map[string]*Job
	wg   sync.WaitGroup
}

// NewJobs creates a registry whose jobs derive their context from base.
func NewJobs(gen *grid.Generator, base context.Context) *Jobs {
	if base == nil {
		base = context.Background()
	}
	return &Jobs{
		gen:  gen,
		base: base,
		now:  time.Now,
		jobs: make(map[string]*Job),
	}
}

// Start registers a job for req and runs it in the background.
func (js *Jobs) Start(req domain.GridRequest) *Job {
	ctx, cancel := context.WithCancel(js.base)
	job := &Job{
		ID:        uuid.NewString(),
		Request:   req,
		CreatedAt: js.now().UTC(),
		tracker:   grid.NewTracker(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	js.mu.Lock()
	js.jobs[job.ID] = job
	js.mu.Unlock()

	js.wg.Add(1)
	go func() {
		defer js.wg.Done()
		defer close(job.done)
		defer cancel()

		res, err := js.gen.Track(ctx, req, job.tracker, nil)
		if err != nil {
			return
		}
		job.mu.Lock()
		job.result = res
		job.mu.Unlock()
	}()

	return job
}

// Get looks up a job by id.
func (js *Jobs) Get(id string) (*Job, bool) {
	js.mu.RLock()
	defer js.mu.RUnlock()
	job, ok := js.jobs[id]
	return job, ok
}

// Len returns the number of registered jobs.
func (js *Jobs) Len() int {
	js.mu.RLock()
	defer js.mu.RUnlock()
	return len(js.jobs)
}

// Prune drops terminal jobs created before cutoff and returns how many were removed.
func (js *Jobs) Prune(cutoff time.Time) int {
	js.mu.Lock()
	defer js.mu.Unlock()

	removed := 0
	for id, job := range js.jobs {
		if job.CreatedAt.Before(cutoff) && job.Snapshot().State.Terminal() {
			delete(js.jobs, id)
			removed++
		}
	}
	return removed
}

// CancelAll cancels every running job.
func (js *Jobs) CancelAll() {
	js.mu.RLock()
	defer js.mu.RUnlock()
	for _, job := range js.jobs {
		job.Cancel()
	}
}

// Wait blocks until every started job finished.
func (js *Jobs) Wait() {
	js.wg.Wait()
}
