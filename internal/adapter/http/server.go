package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
	"github.com/couchcryptid/flood-sensor-etl/internal/store"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// SnapshotReader exposes the current snapshot and its source rows.
type SnapshotReader interface {
	Read() (domain.Snapshot, bool)
	Raw() ([]domain.RawRecord, bool)
}

// ComponentCheck reports on one dependency for /healthz. A failing component
// marks the service degraded; it keeps serving the in-memory snapshot.
type ComponentCheck func(ctx context.Context) (detail string, err error)

type component struct {
	name  string
	check ComponentCheck
}

type componentHealth struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Server exposes the snapshot query API plus health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	snapshots  SnapshotReader
	components []component
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /api/sensor-data, /api/sensor-data/raw,
// /healthz, /readyz, and /metrics routes. CORS applies to every route.
func NewServer(addr string, snapshots SnapshotReader, ready ReadinessChecker, allowedOrigins []string, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		snapshots: snapshots,
		logger:    logger,
	}

	r.Get("/api/sensor-data", s.handleSnapshot)
	r.Get("/api/sensor-data/raw", s.handleRaw)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(ready))
	r.Handle("/metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-Snapshot-Status", "X-Snapshot-Cycle", "X-Snapshot-Taken-At"},
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      c.Handler(r),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// AddComponent registers a dependency check reported by /healthz.
func (s *Server) AddComponent(name string, check ComponentCheck) {
	s.components = append(s.components, component{name: name, check: check})
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

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleSnapshot always answers 200. Before the first commit the body is the
// empty snapshot with every category present.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.snapshots.Read()
	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("encode snapshot failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "encode snapshot"})
		return
	}

	h := w.Header()
	h.Set("X-Snapshot-Status", "empty")
	if ok {
		h.Set("X-Snapshot-Status", "ok")
		if snap.CycleID != "" {
			h.Set("X-Snapshot-Cycle", snap.CycleID)
		}
		if !snap.TakenAt.IsZero() {
			h.Set("X-Snapshot-Taken-At", snap.TakenAt.UTC().Format(time.RFC3339))
		}
	}
	h.Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck,gosec // client went away
}

func (s *Server) handleRaw(w http.ResponseWriter, _ *http.Request) {
	raw, ok := s.snapshots.Raw()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot yet"})
		return
	}

	var buf bytes.Buffer
	if err := store.WriteRawCSV(&buf, raw); err != nil {
		s.logger.Error("encode raw dump failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "encode raw dump"})
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="sensor_data.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck,gosec // client went away
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	components := make([]componentHealth, 0, len(s.components))
	for _, c := range s.components {
		detail, err := c.check(ctx)
		ch := componentHealth{Name: c.name, Status: "healthy", Message: detail}
		if err != nil {
			ch.Status = "degraded"
			ch.Message = err.Error()
			status = "degraded"
		}
		components = append(components, ch)
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": status, "components": components})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
