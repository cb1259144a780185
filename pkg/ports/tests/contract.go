// Package tests provides a reusable contract suite for ports.Store
// implementations. Every adapter runs it, so backends cannot drift apart
// in ordering, copy, or not-found behavior.
package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/stateflow/pkg/definition"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/ports"
)

var base = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func graphRecord(id string, created time.Time) ports.GraphRecord {
	return ports.GraphRecord{
		ID: id,
		Definition: definition.GraphDefinition{
			Name: "wf-" + id,
			Nodes: []definition.NodeDefinition{
				{Name: "start"},
				{Name: "end"},
			},
			Edges: []definition.EdgeDefinition{
				{From: "start", To: "end"},
			},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func runRecord(id, graphID string, status domain.Status, started time.Time) ports.RunRecord {
	final := domain.NewState().Set("score", 87.5).Set("label", "ok")
	completed := started.Add(time.Second)
	return ports.RunRecord{
		ID:         id,
		GraphID:    graphID,
		GraphName:  "wf-" + graphID,
		Status:     status,
		FinalState: final,
		Log: []domain.StepRecord{
			{Node: "start", Step: 1, Before: domain.NewState(), After: final.Snapshot(), ExecutedAt: started},
		},
		StartedAt:   started,
		CompletedAt: &completed,
	}
}

// StoreContractTest verifies that an adapter complies with ports.Store.
// newStore must return a fresh, empty store on every call.
func StoreContractTest(t *testing.T, newStore func(t *testing.T) ports.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("GraphRoundTrip", func(t *testing.T) {
		store := newStore(t)
		rec := graphRecord("g1", base)
		if err := store.SaveGraph(ctx, rec); err != nil {
			t.Fatalf("save graph: %v", err)
		}

		got, err := store.GetGraph(ctx, "g1")
		if err != nil {
			t.Fatalf("get graph: %v", err)
		}
		if got.ID != "g1" || got.Definition.Name != "wf-g1" {
			t.Errorf("unexpected record: %+v", got)
		}
		if len(got.Definition.Nodes) != 2 || got.Definition.Nodes[0].Name != "start" {
			t.Errorf("nodes not preserved: %+v", got.Definition.Nodes)
		}
		if len(got.Definition.Edges) != 1 || got.Definition.Edges[0].To != "end" {
			t.Errorf("edges not preserved: %+v", got.Definition.Edges)
		}
		if !got.CreatedAt.Equal(base) || !got.UpdatedAt.Equal(base) {
			t.Errorf("timestamps not preserved: %v %v", got.CreatedAt, got.UpdatedAt)
		}
	})

	t.Run("GraphUpdate", func(t *testing.T) {
		store := newStore(t)
		rec := graphRecord("g1", base)
		if err := store.SaveGraph(ctx, rec); err != nil {
			t.Fatalf("save graph: %v", err)
		}

		rec.Definition.Description = "second revision"
		rec.UpdatedAt = base.Add(time.Minute)
		if err := store.SaveGraph(ctx, rec); err != nil {
			t.Fatalf("update graph: %v", err)
		}

		got, err := store.GetGraph(ctx, "g1")
		if err != nil {
			t.Fatalf("get graph: %v", err)
		}
		if got.Definition.Description != "second revision" {
			t.Errorf("update not applied: %+v", got.Definition)
		}
		if !got.UpdatedAt.Equal(base.Add(time.Minute)) {
			t.Errorf("updated_at not applied: %v", got.UpdatedAt)
		}

		list, err := store.ListGraphs(ctx)
		if err != nil {
			t.Fatalf("list graphs: %v", err)
		}
		if len(list) != 1 {
			t.Errorf("update must not duplicate, got %d records", len(list))
		}
	})

	t.Run("GraphNotFound", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.GetGraph(ctx, "ghost"); !errors.Is(err, ports.ErrGraphNotFound) {
			t.Errorf("expected ErrGraphNotFound, got %v", err)
		}
	})

	t.Run("GraphListOldestFirst", func(t *testing.T) {
		store := newStore(t)
		// Inserted out of order on purpose.
		for _, rec := range []ports.GraphRecord{
			graphRecord("c", base.Add(2*time.Minute)),
			graphRecord("a", base),
			graphRecord("b", base.Add(time.Minute)),
		} {
			if err := store.SaveGraph(ctx, rec); err != nil {
				t.Fatalf("save graph %s: %v", rec.ID, err)
			}
		}

		list, err := store.ListGraphs(ctx)
		if err != nil {
			t.Fatalf("list graphs: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 graphs, got %d", len(list))
		}
		for i, want := range []string{"a", "b", "c"} {
			if list[i].ID != want {
				t.Errorf("position %d: got %s, want %s", i, list[i].ID, want)
			}
		}
	})

	t.Run("GraphDelete", func(t *testing.T) {
		store := newStore(t)
		if err := store.SaveGraph(ctx, graphRecord("g1", base)); err != nil {
			t.Fatalf("save graph: %v", err)
		}
		if err := store.DeleteGraph(ctx, "g1"); err != nil {
			t.Fatalf("delete graph: %v", err)
		}
		if _, err := store.GetGraph(ctx, "g1"); !errors.Is(err, ports.ErrGraphNotFound) {
			t.Errorf("expected ErrGraphNotFound after delete, got %v", err)
		}
		if err := store.DeleteGraph(ctx, "g1"); !errors.Is(err, ports.ErrGraphNotFound) {
			t.Errorf("expected ErrGraphNotFound deleting twice, got %v", err)
		}
	})

	t.Run("GraphCopyIsolation", func(t *testing.T) {
		store := newStore(t)
		rec := graphRecord("g1", base)
		if err := store.SaveGraph(ctx, rec); err != nil {
			t.Fatalf("save graph: %v", err)
		}

		rec.Definition.Nodes[0].Name = "mutated-after-save"
		got, err := store.GetGraph(ctx, "g1")
		if err != nil {
			t.Fatalf("get graph: %v", err)
		}
		if got.Definition.Nodes[0].Name != "start" {
			t.Errorf("store aliased caller memory on save: %+v", got.Definition.Nodes)
		}

		got.Definition.Nodes[0].Name = "mutated-after-get"
		again, err := store.GetGraph(ctx, "g1")
		if err != nil {
			t.Fatalf("get graph: %v", err)
		}
		if again.Definition.Nodes[0].Name != "start" {
			t.Errorf("store aliased returned memory: %+v", again.Definition.Nodes)
		}
	})

	t.Run("RunRoundTrip", func(t *testing.T) {
		store := newStore(t)
		rec := runRecord("r1", "g1", domain.StatusCompleted, base)
		if err := store.SaveRun(ctx, rec); err != nil {
			t.Fatalf("save run: %v", err)
		}

		got, err := store.GetRun(ctx, "r1")
		if err != nil {
			t.Fatalf("get run: %v", err)
		}
		if got.Status != domain.StatusCompleted || got.GraphID != "g1" {
			t.Errorf("unexpected record: %+v", got)
		}
		if got.FinalState == nil {
			t.Fatalf("final state not preserved: %+v", got)
		}
		if score, _ := got.FinalState.GetFloat64("score"); score != 87.5 {
			t.Errorf("final state not preserved: %v", got.FinalState)
		}
		if label, _ := got.FinalState.GetString("label"); label != "ok" {
			t.Errorf("final state not preserved: %v", got.FinalState)
		}
		if len(got.Log) != 1 || got.Log[0].Node != "start" || got.Log[0].Step != 1 {
			t.Errorf("log not preserved: %+v", got.Log)
		}
		if !got.StartedAt.Equal(base) {
			t.Errorf("started_at not preserved: %v", got.StartedAt)
		}
		if got.CompletedAt == nil || !got.CompletedAt.Equal(base.Add(time.Second)) {
			t.Errorf("completed_at not preserved: %v", got.CompletedAt)
		}
	})

	t.Run("RunPendingHasNoOutcome", func(t *testing.T) {
		store := newStore(t)
		rec := ports.RunRecord{
			ID:        "r1",
			GraphID:   "g1",
			GraphName: "wf-g1",
			Status:    domain.StatusPending,
			StartedAt: base,
		}
		if err := store.SaveRun(ctx, rec); err != nil {
			t.Fatalf("save run: %v", err)
		}

		got, err := store.GetRun(ctx, "r1")
		if err != nil {
			t.Fatalf("get run: %v", err)
		}
		if got.Status != domain.StatusPending {
			t.Errorf("status: got %s, want pending", got.Status)
		}
		if got.FinalState != nil || got.CompletedAt != nil || len(got.Log) != 0 {
			t.Errorf("pending run must have no outcome: %+v", got)
		}
	})

	t.Run("RunUpsert", func(t *testing.T) {
		store := newStore(t)
		pending := ports.RunRecord{ID: "r1", GraphID: "g1", Status: domain.StatusPending, StartedAt: base}
		if err := store.SaveRun(ctx, pending); err != nil {
			t.Fatalf("save pending: %v", err)
		}

		if err := store.SaveRun(ctx, runRecord("r1", "g1", domain.StatusCompleted, base)); err != nil {
			t.Fatalf("save completed: %v", err)
		}

		got, err := store.GetRun(ctx, "r1")
		if err != nil {
			t.Fatalf("get run: %v", err)
		}
		if got.Status != domain.StatusCompleted || len(got.Log) != 1 {
			t.Errorf("upsert did not replace: %+v", got)
		}

		list, err := store.ListRuns(ctx, ports.RunFilter{})
		if err != nil {
			t.Fatalf("list runs: %v", err)
		}
		if len(list) != 1 {
			t.Errorf("upsert must not duplicate, got %d records", len(list))
		}
	})

	t.Run("RunNotFound", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.GetRun(ctx, "ghost"); !errors.Is(err, ports.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("RunListNewestFirst", func(t *testing.T) {
		store := newStore(t)
		for _, rec := range []ports.RunRecord{
			runRecord("r1", "g1", domain.StatusCompleted, base),
			runRecord("r3", "g1", domain.StatusCompleted, base.Add(2*time.Minute)),
			runRecord("r2", "g1", domain.StatusCompleted, base.Add(time.Minute)),
		} {
			if err := store.SaveRun(ctx, rec); err != nil {
				t.Fatalf("save run %s: %v", rec.ID, err)
			}
		}

		list, err := store.ListRuns(ctx, ports.RunFilter{})
		if err != nil {
			t.Fatalf("list runs: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(list))
		}
		for i, want := range []string{"r3", "r2", "r1"} {
			if list[i].ID != want {
				t.Errorf("position %d: got %s, want %s", i, list[i].ID, want)
			}
		}
	})

	t.Run("RunListFilters", func(t *testing.T) {
		store := newStore(t)
		for _, rec := range []ports.RunRecord{
			runRecord("r1", "g1", domain.StatusCompleted, base),
			runRecord("r2", "g1", domain.StatusFailed, base.Add(time.Minute)),
			runRecord("r3", "g2", domain.StatusCompleted, base.Add(2*time.Minute)),
		} {
			if err := store.SaveRun(ctx, rec); err != nil {
				t.Fatalf("save run %s: %v", rec.ID, err)
			}
		}

		byGraph, err := store.ListRuns(ctx, ports.RunFilter{GraphID: "g1"})
		if err != nil {
			t.Fatalf("list by graph: %v", err)
		}
		if len(byGraph) != 2 || byGraph[0].ID != "r2" || byGraph[1].ID != "r1" {
			t.Errorf("graph filter wrong: %+v", byGraph)
		}

		byStatus, err := store.ListRuns(ctx, ports.RunFilter{Status: domain.StatusFailed})
		if err != nil {
			t.Fatalf("list by status: %v", err)
		}
		if len(byStatus) != 1 || byStatus[0].ID != "r2" {
			t.Errorf("status filter wrong: %+v", byStatus)
		}

		both, err := store.ListRuns(ctx, ports.RunFilter{GraphID: "g2", Status: domain.StatusCompleted})
		if err != nil {
			t.Fatalf("list by graph and status: %v", err)
		}
		if len(both) != 1 || both[0].ID != "r3" {
			t.Errorf("combined filter wrong: %+v", both)
		}
	})

	t.Run("RunListLimit", func(t *testing.T) {
		store := newStore(t)
		for i, id := range []string{"r1", "r2", "r3"} {
			rec := runRecord(id, "g1", domain.StatusCompleted, base.Add(time.Duration(i)*time.Minute))
			if err := store.SaveRun(ctx, rec); err != nil {
				t.Fatalf("save run %s: %v", id, err)
			}
		}

		list, err := store.ListRuns(ctx, ports.RunFilter{Limit: 2})
		if err != nil {
			t.Fatalf("list runs: %v", err)
		}
		if len(list) != 2 || list[0].ID != "r3" || list[1].ID != "r2" {
			t.Errorf("limit wrong: %+v", list)
		}
	})

	t.Run("RunCopyIsolation", func(t *testing.T) {
		store := newStore(t)
		rec := runRecord("r1", "g1", domain.StatusCompleted, base)
		if err := store.SaveRun(ctx, rec); err != nil {
			t.Fatalf("save run: %v", err)
		}

		rec.Log[0].After.Set("score", 1.0)
		got, err := store.GetRun(ctx, "r1")
		if err != nil {
			t.Fatalf("get run: %v", err)
		}
		if score, _ := got.Log[0].After.GetFloat64("score"); score != 87.5 {
			t.Errorf("store aliased caller memory on save: %v", got.Log[0].After)
		}
	})
}
