// Package httpapi is the outer HTTP gateway: it translates the REST
// surface (spec §6.1) into calls against the registry (C9) and carries
// the ambient ops endpoints (/healthz, /readyz, /metrics), grounded on
// the teacher's httpadapter.Server — a bare http.ServeMux wrapped in an
// *http.Server with explicit timeouts, no framework.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/registry"
)

// Server exposes Test-Probe's REST surface plus health/metrics endpoints.
type Server struct {
	httpServer *http.Server
	registry   *registry.Registry
	logger     *slog.Logger
}

// NewServer builds a Server bound to addr, serving every route through reg.
func NewServer(addr string, reg *registry.Registry, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		registry: reg,
		logger:   logger,
	}

	mux.HandleFunc("POST /api/v1/test/initialize", s.handleInitialize)
	mux.HandleFunc("POST /api/v1/test/start", s.handleStart)
	mux.HandleFunc("GET /api/v1/test/{id}/status", s.handleStatus)
	mux.HandleFunc("DELETE /api/v1/test/{id}", s.handleDelete)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	mux.HandleFunc("GET /healthz", s.handleLiveness)
	mux.HandleFunc("GET /readyz", s.handleReadiness)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type initializeResponse struct {
	TestID uuid.UUID `json:"test-id"`
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	id := s.registry.Initialize()
	writeJSON(w, http.StatusOK, initializeResponse{TestID: id})
}

type startRequest struct {
	TestID           uuid.UUID `json:"test-id"`
	BlockStoragePath string    `json:"block-storage-path"`
	TestType         string    `json:"test-type"`
}

type startResponse struct {
	TestID   uuid.UUID `json:"test-id"`
	Accepted bool      `json:"accepted"`
	TestType string    `json:"test-type"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	outcome, err := s.registry.Start(r.Context(), req.TestID, req.BlockStoragePath, req.TestType)
	if err != nil {
		status := http.StatusNotFound
		if !errors.Is(err, domain.ErrTestNotFound) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, startResponse{
		TestID:   req.TestID,
		Accepted: outcome == registry.Accepted,
		TestType: req.TestType,
	})
}

type statusResponse struct {
	TestID          uuid.UUID `json:"test-id"`
	State           string    `json:"state"`
	CurrentPhase    string    `json:"current-phase"`
	ProgressPercent int       `json:"progress-percent"`
	Result          *bool     `json:"result,omitempty"`
	Error           string    `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed test id")
		return
	}

	status, err := s.registry.Status(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		TestID:          id,
		State:           restState(status.State),
		CurrentPhase:    status.CurrentPhase,
		ProgressPercent: status.ProgressPercent,
		Result:          status.Success,
		Error:           status.Error,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed test id")
		return
	}

	if err := s.registry.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadiness reports the process ready as soon as it can accept
// traffic; Test-Probe has no warm-up dependency the way the teacher's
// pipeline did (a Kafka consumer group join before its first message),
// so readiness here is equivalent to liveness.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// restState maps the engine's internal state names onto spec §6.1's
// coarser caller-facing vocabulary.
func restState(state domain.TestState) string {
	switch state {
	case domain.StateUninitialized:
		return "Uninitialized"
	case domain.StateCompleted:
		return "Completed"
	case domain.StateFailed:
		return "Failed"
	default:
		return "InProgress"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
