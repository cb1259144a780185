package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/ports"
	"github.com/aretw0/stateflow/pkg/ports/tests"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewFromClient(client, opts...)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close redis store: %v", err)
		}
	})
	return store, mr
}

func TestStoreContract(t *testing.T) {
	tests.StoreContractTest(t, func(t *testing.T) ports.Store {
		store, _ := newTestStore(t)
		return store
	})
}

func TestPrefixIsolatesStores(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	a := NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}), WithPrefix("a:"))
	defer a.Close()
	b := NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}), WithPrefix("b:"))
	defer b.Close()

	rec := ports.RunRecord{
		ID:        "r1",
		GraphID:   "g1",
		Status:    domain.StatusCompleted,
		StartedAt: time.Now().UTC(),
	}
	if err := a.SaveRun(ctx, rec); err != nil {
		t.Fatalf("save run: %v", err)
	}

	if _, err := b.GetRun(ctx, "r1"); !errors.Is(err, ports.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound across prefixes, got %v", err)
	}
	if _, err := a.GetRun(ctx, "r1"); err != nil {
		t.Errorf("run lost in its own prefix: %v", err)
	}
}

func TestRunTTLExpiresRunsButNotGraphs(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, WithRunTTL(time.Minute))

	graph := ports.GraphRecord{ID: "g1", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := store.SaveGraph(ctx, graph); err != nil {
		t.Fatalf("save graph: %v", err)
	}
	run := ports.RunRecord{ID: "r1", GraphID: "g1", Status: domain.StatusCompleted, StartedAt: time.Now().UTC()}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.GetRun(ctx, "r1"); !errors.Is(err, ports.ErrRunNotFound) {
		t.Errorf("expected run to expire, got %v", err)
	}
	if _, err := store.GetGraph(ctx, "g1"); err != nil {
		t.Errorf("graph must not expire: %v", err)
	}

	// The expired run also disappears from listings, and its stale index
	// entry is pruned on the way.
	list, err := store.ListRuns(ctx, ports.RunFilter{})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no runs after expiry, got %d", len(list))
	}
}
