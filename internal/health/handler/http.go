// Package handler serves liveness, readiness and metrics over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// readyTimeout bounds all readiness checks of one request.
const readyTimeout = 2 * time.Second

// Pinger is used for readiness checks (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the unlock policy engine can evaluate.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Check is one named readiness check.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// PingCheck adapts a Pinger to a Check. A nil pinger always passes.
func PingCheck(name string, p Pinger) Check {
	return Check{Name: name, Run: func(ctx context.Context) error {
		if p == nil {
			return nil
		}
		return p.PingContext(ctx)
	}}
}

// PolicyCheck adapts a PolicyChecker to a Check. A nil checker always passes.
func PolicyCheck(name string, pc PolicyChecker) Check {
	return Check{Name: name, Run: func(ctx context.Context) error {
		if pc == nil {
			return nil
		}
		return pc.HealthCheck(ctx)
	}}
}

// Server answers /healthz (process up), /readyz (every Check passes) and /metrics.
type Server struct {
	checks  []Check
	metrics http.Handler
}

// NewServer returns a Server. metrics may be nil to omit /metrics.
func NewServer(metrics http.Handler, checks ...Check) *Server {
	return &Server{checks: checks, metrics: metrics}
}

// Router returns the chi router for the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.liveness)
	r.Get("/readyz", s.readiness)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, readyResponse{Status: "ok"})
}

func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := readyResponse{Status: "ok", Checks: make(map[string]string, len(s.checks))}
	code := http.StatusOK
	for _, c := range s.checks {
		if err := c.Run(ctx); err != nil {
			resp.Checks[c.Name] = err.Error()
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
