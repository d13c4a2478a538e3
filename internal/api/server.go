// Package api exposes simulations and grid generation over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"betting-risk-lab/internal/domain"
	"betting-risk-lab/internal/grid"
	"betting-risk-lab/internal/observability"
	"betting-risk-lab/internal/simulation"
	"betting-risk-lab/internal/storage"
)

// DefaultPollInterval is how often the progress stream samples a job.
const DefaultPollInterval = 100 * time.Millisecond

const (
	writeWait      = 5 * time.Second
	maxRequestBody = 1 << 20
)

// Server serves the HTTP API.
type Server struct {
	jobs         *Jobs
	cache        storage.GridCache
	gatherer     prometheus.Gatherer
	logger       *log.Logger
	pollInterval time.Duration
	upgrader     websocket.Upgrader
}

// Options contains configuration for creating a Server.
type Options struct {
	Jobs         *Jobs               // required
	Cache        storage.GridCache   // optional, enables DELETE /api/cache
	Gatherer     prometheus.Gatherer // optional, defaults to prometheus.DefaultGatherer
	Logger       *log.Logger         // optional
	PollInterval time.Duration       // optional, defaults to DefaultPollInterval
}

// NewServer creates an API server.
func NewServer(opts Options) (*Server, error) {
	if opts.Jobs == nil {
		return nil, errors.New("api: jobs registry is required")
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Server{
		jobs:         opts.Jobs,
		cache:        opts.Cache,
		gatherer:     gatherer,
		logger:       opts.Logger,
		pollInterval: poll,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler(s.gatherer))

	mux.HandleFunc("POST /api/simulate", s.handleSimulate)
	mux.HandleFunc("POST /api/grids", s.handleCreateGrid)
	mux.HandleFunc("GET /api/grids/{id}", s.handleGetGrid)
	mux.HandleFunc("GET /api/grids/{id}/progress", s.handleProgress)
	mux.HandleFunc("DELETE /api/grids/{id}", s.handleCancelGrid)
	mux.HandleFunc("DELETE /api/cache", s.handleClearCache)
	mux.HandleFunc("DELETE /api/cache/{fingerprint}", s.handleEvictGrid)

	return mux
}

// simulateRequest is the body of POST /api/simulate.
type simulateRequest struct {
	domain.SimulationConfig
	HistoryEvery int `json:"history_every,omitempty"`
}

// SimulateResponse is the body returned by POST /api/simulate.
type SimulateResponse struct {
	Outcome domain.TrialOutcome   `json:"outcome"`
	History []domain.BalancePoint `json:"history"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if v := r.URL.Query().Get("history_every"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("history_every must be an integer"))
			return
		}
		req.HistoryEvery = n
	}

	sim := simulation.New(simulation.Options{HistoryEvery: req.HistoryEvery})
	out, history, err := sim.SimulateWithHistory(req.SimulationConfig)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, SimulateResponse{Outcome: out, History: history})
}

// CreatedResponse is the body returned by POST /api/grids.
type CreatedResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleCreateGrid(w http.ResponseWriter, r *http.Request) {
	var req domain.GridRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// Reject invalid requests synchronously instead of creating a failed job.
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	job := s.jobs.Start(req)
	s.logf("grid job %s started: %d cells", job.ID, req.TotalCells())
	writeJSON(w, http.StatusAccepted, CreatedResponse{ID: job.ID})
}

// GridStatus is the body returned by GET /api/grids/{id}.
type GridStatus struct {
	ID string `json:"id"`
	grid.Snapshot
	Fingerprint string      `json:"fingerprint,omitempty"`
	Result      grid.Result `json:"result,omitempty"`
}

func (s *Server) status(ctx context.Context, job *Job) GridStatus {
	snap, res := job.Outcome(ctx)
	st := GridStatus{ID: job.ID, Snapshot: snap}
	if res != nil {
		st.Fingerprint = res.Fingerprint
		st.Result = grid.BuildResult(res.Grid)
	}
	return st
}

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("grid job not found"))
		return
	}
	writeJSON(w, http.StatusOK, s.status(r.Context(), job))
}

func (s *Server) handleCancelGrid(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("grid job not found"))
		return
	}
	if job.Snapshot().State.Terminal() {
		writeError(w, http.StatusConflict, errors.New("grid job already finished"))
		return
	}
	job.Cancel()
	s.logf("grid job %s cancelled", job.ID)
	writeJSON(w, http.StatusAccepted, CreatedResponse{ID: job.ID})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		if err := s.cache.Clear(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.logf("grid cache cleared")
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEvictGrid drops one cached grid so its next request is recomputed.
func (s *Server) handleEvictGrid(w http.ResponseWriter, r *http.Request) {
	fp := r.PathValue("fingerprint")
	if s.cache != nil {
		if err := s.cache.Delete(r.Context(), fp); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.logf("grid %s evicted from cache", fp)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProgressEvent is one message of the progress stream.
type ProgressEvent struct {
	ID string `json:"id"`
	grid.Snapshot
}

// handleProgress streams job snapshots over a websocket until the job is terminal,
// then closes the connection normally.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("grid job not found"))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logf("websocket upgrade for job %s: %v", job.ID, err)
		return
	}
	defer conn.Close()

	// Drain client frames so close and ping control messages are processed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var (
		last grid.Snapshot
		sent bool
	)
	for {
		snap := job.Snapshot()
		if !sent || !sameSnapshot(last, snap) {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ProgressEvent{ID: job.ID, Snapshot: snap}); err != nil {
				return
			}
			last, sent = snap, true
		}
		if snap.State.Terminal() {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(snap.State)),
				time.Now().Add(writeWait))
			return
		}

		select {
		case <-ticker.C:
		case <-job.Done():
		case <-gone:
			return
		}
	}
}

func sameSnapshot(a, b grid.Snapshot) bool {
	ac, bc := a.Cell, b.Cell
	a.Cell, b.Cell = nil, nil
	if a != b {
		return false
	}
	if ac == nil || bc == nil {
		return ac == bc
	}
	return *ac == *bc
}

func (s *Server) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

func statusFor(err error) int {
	if errors.Is(err, domain.ErrInvalidConfig) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
