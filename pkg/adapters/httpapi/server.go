// Package httpapi exposes graph management and execution over HTTP: CRUD
// for stored graph definitions, synchronous and asynchronous runs, run
// history, Mermaid rendering and an SSE event stream per run.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/aretw0/stateflow"
	pgraph "github.com/aretw0/stateflow/internal/presentation/graph"
	"github.com/aretw0/stateflow/internal/runtime"
	"github.com/aretw0/stateflow/pkg/definition"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/ports"
	"github.com/aretw0/stateflow/pkg/registry"
)

// Server wires the engine, tool registry and store behind the REST surface.
type Server struct {
	store     ports.Store
	registry  *registry.Registry
	engine    *runtime.Engine
	streams   *StreamManager
	logger    *slog.Logger
	metrics   http.Handler
	asyncRuns sync.WaitGroup
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	logger     *slog.Logger
	metrics    http.Handler
	engineOpts []runtime.EngineOption
}

// WithLogger sets the request and executor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *serverConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetricsHandler mounts handler at /metrics, typically promhttp paired
// with the observability hooks passed via WithEngineOptions.
func WithMetricsHandler(handler http.Handler) Option {
	return func(c *serverConfig) {
		c.metrics = handler
	}
}

// WithEngineOptions forwards options to the embedded engine, such as the
// iteration cap or extra lifecycle hooks.
func WithEngineOptions(opts ...runtime.EngineOption) Option {
	return func(c *serverConfig) {
		c.engineOpts = append(c.engineOpts, opts...)
	}
}

// NewServer builds a server around a store and a tool registry. The
// embedded engine always carries the SSE broadcast hooks; callers add
// metrics or logging hooks through WithEngineOptions.
func NewServer(store ports.Store, reg *registry.Registry, opts ...Option) *Server {
	cfg := serverConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		store:    store,
		registry: reg,
		streams:  NewStreamManager(cfg.logger),
		logger:   cfg.logger,
		metrics:  cfg.metrics,
	}

	// Surface a broken embedded spec at construction, not first request.
	if _, err := Spec(); err != nil {
		cfg.logger.Error("openapi spec invalid", slog.Any("error", err))
	}

	engineOpts := append([]runtime.EngineOption{
		runtime.WithLogger(cfg.logger),
		runtime.WithHooks(s.streamHooks()),
	}, cfg.engineOpts...)
	s.engine = runtime.NewEngine(engineOpts...)
	return s
}

// Handler returns the HTTP routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(enableCORS)

	r.Get("/health", s.handleHealth)
	r.Get("/info", s.handleInfo)
	r.Get("/openapi.json", s.handleOpenAPI)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tools", s.handleListTools)

		r.Route("/graphs", func(r chi.Router) {
			r.Post("/", s.handleCreateGraph)
			r.Get("/", s.handleListGraphs)
			r.Get("/{graphID}", s.handleGetGraph)
			r.Delete("/{graphID}", s.handleDeleteGraph)
			r.Get("/{graphID}/mermaid", s.handleGraphMermaid)
			r.Post("/{graphID}/runs", s.handleStartRun)
		})

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/{runID}", s.handleGetRun)
			r.Get("/{runID}/events", s.handleRunEvents)
		})
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)))
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	apiVersion := "unknown"
	if doc, err := Spec(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "stateflow-http",
		"version":     stateflow.Version,
		"api_version": apiVersion,
	})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	doc, err := Spec()
	if err != nil {
		s.logger.Error("openapi spec unavailable", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "openapi spec unavailable")
		return
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "openapi spec unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	type toolInfo struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}
	tools := s.registry.List()
	out := make([]toolInfo, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolInfo{Name: t.Name, Description: t.Description})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	var def definition.GraphDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	// A definition is stored only if it binds and validates against the
	// registry, so every stored graph is runnable.
	if _, err := definition.Build(def, s.registry); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	now := time.Now().UTC()
	rec := ports.GraphRecord{
		ID:         uuid.NewString(),
		Definition: def,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.SaveGraph(r.Context(), rec); err != nil {
		s.logger.Error("save graph failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to store graph")
		return
	}

	s.logger.Info("graph created", slog.String("graph_id", rec.ID), slog.String("name", def.Name))
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListGraphs(r.Context())
	if err != nil {
		s.logger.Error("list graphs failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list graphs")
		return
	}
	if recs == nil {
		recs = []ports.GraphRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetGraph(r.Context(), chi.URLParam(r, "graphID"))
	if err != nil {
		if errors.Is(err, ports.ErrGraphNotFound) {
			writeError(w, http.StatusNotFound, "graph not found")
			return
		}
		s.logger.Error("get graph failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load graph")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "graphID")
	if err := s.store.DeleteGraph(r.Context(), id); err != nil {
		if errors.Is(err, ports.ErrGraphNotFound) {
			writeError(w, http.StatusNotFound, "graph not found")
			return
		}
		s.logger.Error("delete graph failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to delete graph")
		return
	}
	s.logger.Info("graph deleted", slog.String("graph_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGraphMermaid(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetGraph(r.Context(), chi.URLParam(r, "graphID"))
	if err != nil {
		if errors.Is(err, ports.ErrGraphNotFound) {
			writeError(w, http.StatusNotFound, "graph not found")
			return
		}
		s.logger.Error("get graph failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load graph")
		return
	}

	var overlay *pgraph.RunOverlay
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		run, err := s.store.GetRun(r.Context(), runID)
		if err != nil {
			if errors.Is(err, ports.ErrRunNotFound) {
				writeError(w, http.StatusNotFound, "run not found")
				return
			}
			s.logger.Error("get run failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "failed to load run")
			return
		}
		overlay = overlayFromRun(run)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, pgraph.GenerateMermaid(rec.Definition, overlay))
}

func overlayFromRun(run ports.RunRecord) *pgraph.RunOverlay {
	overlay := &pgraph.RunOverlay{}
	for _, step := range run.Log {
		overlay.VisitedNodes = append(overlay.VisitedNodes, step.Node)
	}
	if run.Status == domain.StatusFailed && len(run.Log) > 0 {
		overlay.FailedNode = run.Log[len(run.Log)-1].Node
	}
	return overlay
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("response encode failed", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
