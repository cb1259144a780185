package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	oapiruntime "github.com/oapi-codegen/runtime"

	"github.com/aretw0/stateflow/internal/runtime"
	"github.com/aretw0/stateflow/pkg/definition"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/ports"
)

// runRequest is the body of POST /graphs/{graphID}/runs.
type runRequest struct {
	InitialState map[string]any `json:"initial_state"`
	Async        bool           `json:"async"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	graphID := chi.URLParam(r, "graphID")
	rec, err := s.store.GetGraph(r.Context(), graphID)
	if err != nil {
		if errors.Is(err, ports.ErrGraphNotFound) {
			writeError(w, http.StatusNotFound, "graph not found")
			return
		}
		s.logger.Error("get graph failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load graph")
		return
	}

	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
	}

	g, err := definition.Build(rec.Definition, s.registry)
	if err != nil {
		// A stored graph can go stale if tools were registered differently
		// on this instance.
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if req.Async {
		s.startAsyncRun(r.Context(), w, graphID, rec, g, req.InitialState)
		return
	}

	res, err := s.engine.Run(r.Context(), g, req.InitialState)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	runRec := ports.RunRecordFrom(graphID, res)
	if err := s.store.SaveRun(r.Context(), runRec); err != nil {
		s.logger.Error("save run failed", slog.String("run_id", res.ID), slog.Any("error", err))
	}
	writeJSON(w, http.StatusOK, runRec)
}

func (s *Server) startAsyncRun(ctx context.Context, w http.ResponseWriter, graphID string, graphRec ports.GraphRecord, g *domain.Graph, initial map[string]any) {
	runID := uuid.NewString()
	pending := ports.RunRecord{
		ID:        runID,
		GraphID:   graphID,
		GraphName: graphRec.Definition.Name,
		Status:    domain.StatusPending,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.SaveRun(ctx, pending); err != nil {
		s.logger.Error("save pending run failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to store run")
		return
	}

	s.asyncRuns.Add(1)
	go func() {
		defer s.asyncRuns.Done()

		// The run outlives the HTTP request that started it.
		runCtx := context.Background()

		running := pending
		running.Status = domain.StatusRunning
		if err := s.store.SaveRun(runCtx, running); err != nil {
			s.logger.Error("save running run failed", slog.String("run_id", runID), slog.Any("error", err))
		}

		res, err := s.engine.Run(runCtx, g, initial, runtime.WithRunID(runID))
		if err != nil {
			failed := running
			failed.Status = domain.StatusFailed
			failed.Error = err.Error()
			completed := time.Now().UTC()
			failed.CompletedAt = &completed
			if err := s.store.SaveRun(runCtx, failed); err != nil {
				s.logger.Error("save failed run failed", slog.String("run_id", runID), slog.Any("error", err))
			}
			return
		}
		if err := s.store.SaveRun(runCtx, ports.RunRecordFrom(graphID, res)); err != nil {
			s.logger.Error("save run failed", slog.String("run_id", runID), slog.Any("error", err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": string(domain.StatusPending),
	})
}

// Wait blocks until all asynchronous runs have settled. Used during
// graceful shutdown so accepted runs are not lost.
func (s *Server) Wait() {
	s.asyncRuns.Wait()
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	var (
		graphID *string
		status  *string
		limit   *int
	)
	if err := oapiruntime.BindQueryParameter("form", true, false, "graph_id", r.URL.Query(), &graphID); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid graph_id: %v", err))
		return
	}
	if err := oapiruntime.BindQueryParameter("form", true, false, "status", r.URL.Query(), &status); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status: %v", err))
		return
	}
	if err := oapiruntime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %v", err))
		return
	}

	var filter ports.RunFilter
	if graphID != nil {
		filter.GraphID = *graphID
	}
	if status != nil {
		filter.Status = domain.Status(*status)
	}
	if limit != nil {
		filter.Limit = *limit
	}

	recs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		s.logger.Error("list runs failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if recs == nil {
		recs = []ports.RunRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		if errors.Is(err, ports.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("get run failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleRunEvents streams a run's events over SSE. The subscription is
// taken before the record lookup so no event can fall between the two.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ch, cancel := s.streams.Subscribe(runID)
	defer cancel()

	rec, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, ports.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("get run failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprint(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	if rec.Status.Terminal() {
		if ev, ok := replayEvent(rec); ok {
			writeEvent(w, ev)
			flusher.Flush()
		}
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
			if ev.Terminal {
				return
			}
		}
	}
}

// replayEvent synthesizes the terminal run event for a finished run so
// late subscribers see the same shape live ones do.
func replayEvent(rec ports.RunRecord) (Event, bool) {
	ev := domain.RunEvent{
		Time:   rec.StartedAt,
		RunID:  rec.ID,
		Graph:  rec.GraphName,
		Status: rec.Status,
		Err:    rec.Error,
	}
	if rec.CompletedAt != nil {
		ev.Time = *rec.CompletedAt
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return Event{}, false
	}
	return Event{Name: "run", Data: string(data), Terminal: true}, true
}

func writeEvent(w http.ResponseWriter, ev Event) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
}

func (s *Server) streamHooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnd: func(_ context.Context, ev *domain.StepEvent) {
			if data, err := json.Marshal(ev); err == nil {
				s.streams.Broadcast(ev.RunID, Event{Name: "step", Data: string(data)})
			}
		},
		OnRunEnd: func(_ context.Context, ev *domain.RunEvent) {
			if data, err := json.Marshal(ev); err == nil {
				s.streams.Broadcast(ev.RunID, Event{Name: "run", Data: string(data), Terminal: true})
			}
		},
	}
}
