// HTTP API for the dashboard panel
package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/andrewh/spanview/pkg/chart"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

// Server wires the session, metrics, and websocket hub behind a chi
// router.
type Server struct {
	session *Session
	hub     *hub
	router  chi.Router
	promReg *prometheus.Registry
}

// NewServer builds the dashboard server. tp may be nil to disable
// self-instrumentation.
func NewServer(cfg *Config, tp trace.TracerProvider) *Server {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	client := NewClient(cfg.Backend.URL, cfg.Backend.Timeout, tp)

	s := &Server{hub: newHub(), promReg: reg}
	s.session = NewSession(client, cfg.Mode(), os.Stderr, metrics, tp, s.hub.broadcast)
	s.router = s.routes()
	return s
}

// newTestServer wires a server around an arbitrary fetcher, for tests.
func newTestServer(fetcher HitFetcher, mode chart.Mode) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{hub: newHub(), promReg: reg}
	s.session = NewSession(fetcher, mode, nil, NewMetrics(reg), nil, s.hub.broadcast)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/api/traces/{traceID}/chart", s.handleChart)
	r.Get("/api/viewport", s.handleGetViewport)
	r.Post("/api/viewport", s.handleSetViewport)
	r.Post("/api/viewport/reset", s.handleResetViewport)
	r.Get("/api/annotations", s.handleAnnotations)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))
	r.Get("/ws", s.handleWS)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleChart loads the trace's hits from the backend and returns the
// derived snapshot. Backend failures surface as 502; the core never
// degrades into an error here.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "traceID")
	if err := s.session.Load(r.Context(), traceID); err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("loading trace %s: %v", traceID, err))
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleGetViewport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot().Viewport)
}

// handleSetViewport validates at the boundary: the core viewport
// accepts anything, so inverted ranges are rejected here, where the
// caller lives.
func (s *Server) handleSetViewport(w http.ResponseWriter, r *http.Request) {
	var req ViewportState
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid viewport payload")
		return
	}
	if req.VisibleEnd < req.VisibleStart {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid range: end %v before start %v", req.VisibleEnd, req.VisibleStart))
		return
	}
	s.session.SetRange(req.VisibleStart, req.VisibleEnd)
	writeJSON(w, http.StatusOK, s.session.Snapshot().Viewport)
}

func (s *Server) handleResetViewport(w http.ResponseWriter, r *http.Request) {
	s.session.ResetViewport()
	writeJSON(w, http.StatusOK, s.session.Snapshot().Viewport)
}

func (s *Server) handleAnnotations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.ProjectedAnnotations())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
