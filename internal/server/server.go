// Package server exposes research runs over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"dsbench/internal/config"
	"dsbench/internal/llm"
	"dsbench/internal/logging"
	"dsbench/internal/runner"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second

	// RequestIDHeader carries the id assigned to every request.
	RequestIDHeader = "X-Request-ID"
)

// ExperimentRequest is the body of POST /api/experiment.
type ExperimentRequest struct {
	Problem   string `json:"problem"`
	InputData string `json:"input_data,omitempty"` // Host path of the input data file
}

// ExperimentResponse is the reply of POST /api/experiment.
type ExperimentResponse struct {
	Status  string `json:"status"`
	Results string `json:"results,omitempty"`
	Error   string `json:"error,omitempty"`
	RunID   string `json:"run_id,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

// RunFunc starts one research run.
type RunFunc func(ctx context.Context, cfg *config.Config, gen llm.Generator, req runner.Request) (runner.Report, error)

// Server runs one experiment at a time; concurrent requests are refused.
type Server struct {
	cfg *config.Config
	gen llm.Generator
	run RunFunc

	busy sync.Mutex
}

// New creates a server that runs experiments with cfg and gen.
func New(cfg *config.Config, gen llm.Generator) *Server {
	return &Server{cfg: cfg, gen: gen, run: runner.Run}
}

// Handler returns the HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/experiment", s.handleExperiment)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	return withRequestID(withCORS(mux))
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logging.Info("server stopped")
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

func (s *Server) handleExperiment(w http.ResponseWriter, r *http.Request) {
	log := logging.With("request_id", w.Header().Get(RequestIDHeader))

	var req ExperimentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ExperimentResponse{Status: "error", Error: "invalid request body: " + err.Error()})
		return
	}
	if req.Problem == "" {
		writeJSON(w, http.StatusBadRequest, ExperimentResponse{Status: "error", Error: "problem is required"})
		return
	}

	if !s.busy.TryLock() {
		writeJSON(w, http.StatusConflict, ExperimentResponse{Status: "error", Error: "an experiment is already running"})
		return
	}
	defer s.busy.Unlock()

	log.Info("experiment requested", "problem", req.Problem, "input", req.InputData)
	report, err := s.run(r.Context(), s.cfg, s.gen, runner.Request{Problem: req.Problem, Input: req.InputData})
	if err != nil {
		log.Error("experiment failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ExperimentResponse{Status: "error", Error: err.Error(), RunID: report.RunID})
		return
	}

	writeJSON(w, http.StatusOK, ExperimentResponse{
		Status:  "success",
		Results: report.Observation,
		RunID:   report.RunID,
		Outcome: string(report.Status),
		Diff:    report.Diff,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to write response", "error", err)
	}
}

// withCORS allows any origin, method and header.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "*")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRequestID echoes the caller's request id or assigns a new one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		logging.Debug("http request", "method", r.Method, "path", r.URL.Path, "request_id", id)
		next.ServeHTTP(w, r)
	})
}
