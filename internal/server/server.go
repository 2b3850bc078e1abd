// Package server composes the HTTP surface: every /api/v1/* route, bearer
// auth, per-key rate limiting, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hexmem/hexmem/internal/analytics"
	"github.com/hexmem/hexmem/internal/apikeys"
	"github.com/hexmem/hexmem/internal/decay"
	"github.com/hexmem/hexmem/internal/extract"
	"github.com/hexmem/hexmem/internal/graph"
	"github.com/hexmem/hexmem/internal/ingest"
	"github.com/hexmem/hexmem/internal/recall"
	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

// Server wires the composed components into an http.Handler.
type Server struct {
	st         store.Store
	ingest     *ingest.Pipeline
	recall     *recall.Planner
	graph      *graph.Service
	decay      *decay.Engine
	analytics  *analytics.Logger
	keys       *apikeys.Manager
	summarizer extract.Summarizer
	devKey     string
	embedderOK bool
	embedName  string

	mux *http.ServeMux
}

// Deps bundles every composed component the server dispatches to.
type Deps struct {
	Store      store.Store
	Ingest     *ingest.Pipeline
	Recall     *recall.Planner
	Graph      *graph.Service
	Decay      *decay.Engine
	Analytics  *analytics.Logger
	Keys       *apikeys.Manager
	Summarizer extract.Summarizer
	DevKey     string
	EmbedderOK bool
	EmbedName  string
}

func New(d Deps) *Server {
	s := &Server{
		st:         d.Store,
		ingest:     d.Ingest,
		recall:     d.Recall,
		graph:      d.Graph,
		decay:      d.Decay,
		analytics:  d.Analytics,
		keys:       d.Keys,
		summarizer: d.Summarizer,
		devKey:     d.DevKey,
		embedderOK: d.EmbedderOK,
		embedName:  d.EmbedName,
	}
	s.mux = http.NewServeMux()
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// routes registers one ServeMux entry per path; each handler switches on
// method internally rather than registering per-method patterns, since most
// paths share state (an id, a list filter) across GET/POST/PUT/DELETE.
func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	api := http.NewServeMux()
	api.HandleFunc("/api/v1/agents", s.requireAuth(s.handleAgents))
	api.HandleFunc("/api/v1/agents/{id}", s.requireAuth(s.handleAgent))
	api.HandleFunc("/api/v1/agents/{id}/core-memory", s.requireAuth(requirePermission(writePerm, s.handleCoreMemory)))

	api.HandleFunc("/api/v1/keys", s.requireAuth(s.handleKeys))
	api.HandleFunc("/api/v1/keys/{id}", s.requireAuth(requirePermission(adminPerm, s.handleKey)))

	api.HandleFunc("/api/v1/sessions", s.requireAuth(s.handleSessions))
	api.HandleFunc("/api/v1/sessions/{id}", s.requireAuth(s.handleSession))
	api.HandleFunc("/api/v1/sessions/{id}/messages", s.requireAuth(s.handleSessionMessages))
	api.HandleFunc("/api/v1/sessions/{id}/end", s.requireAuth(requirePermission(writePerm, s.handleSessionEnd)))

	api.HandleFunc("/api/v1/facts", s.requireAuth(s.handleFacts))
	api.HandleFunc("/api/v1/facts/{id}", s.requireAuth(s.handleFact))
	api.HandleFunc("/api/v1/decisions", s.requireAuth(s.handleDecisions))
	api.HandleFunc("/api/v1/decisions/{id}", s.requireAuth(s.handleDecision))
	api.HandleFunc("/api/v1/tasks", s.requireAuth(s.handleTasks))
	api.HandleFunc("/api/v1/tasks/{id}", s.requireAuth(s.handleTask))
	api.HandleFunc("/api/v1/events", s.requireAuth(s.handleEvents))
	api.HandleFunc("/api/v1/events/{id}", s.requireAuth(s.handleEvent))
	api.HandleFunc("/api/v1/projects", s.requireAuth(s.handleProjects))
	api.HandleFunc("/api/v1/projects/{id}", s.requireAuth(s.handleProject))

	api.HandleFunc("/api/v1/search", s.requireAuth(s.handleSearch))
	api.HandleFunc("/api/v1/recall", s.requireAuth(s.handleRecall))

	api.HandleFunc("/api/v1/edges", s.requireAuth(s.handleEdges))
	api.HandleFunc("/api/v1/edges/{id}", s.requireAuth(requirePermission(writePerm, s.handleEdge)))
	api.HandleFunc("/api/v1/edges/graph/{type}/{id}", s.requireAuth(s.handleEdgeGraph))

	api.HandleFunc("/api/v1/decay/status", s.requireAuth(s.handleDecayStatus))
	api.HandleFunc("/api/v1/decay/sweep", s.requireAuth(requirePermission(writePerm, s.handleDecaySweep)))

	api.HandleFunc("/api/v1/analytics/queries", s.requireAuth(s.handleAnalytics))

	s.mux.Handle("/api/v1/", api)
}

const (
	readPerm  = hexmem.PermissionRead
	writePerm = hexmem.PermissionWrite
	adminPerm = hexmem.PermissionAdmin
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	status := "ok"
	dbErr := s.st.Ping(r.Context())
	if dbErr != nil {
		status = "degraded"
	}
	body := map[string]interface{}{
		"status":              status,
		"embedder":            s.embedName,
		"embedder_reachable":  s.embedderOK,
	}
	if dbErr != nil {
		body["db_error"] = dbErr.Error()
	}
	respondJSON(w, http.StatusOK, body)
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
