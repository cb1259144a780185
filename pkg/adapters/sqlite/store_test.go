package sqlite

import (
	"testing"

	_ "modernc.org/sqlite"

	"github.com/aretw0/stateflow/pkg/ports"
	"github.com/aretw0/stateflow/pkg/ports/tests"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close sqlite store: %v", err)
		}
	})
	return store
}

func TestStoreContract(t *testing.T) {
	tests.StoreContractTest(t, func(t *testing.T) ports.Store {
		return newTestStore(t)
	})
}
