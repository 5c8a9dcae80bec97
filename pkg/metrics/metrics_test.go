package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Fxcilities/state-pool/pkg/persist"
	"github.com/Fxcilities/state-pool/pkg/store"
)

func TestObserverCountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg))

	s := store.New()
	s.Subscribe(m.Observer())

	cell, _ := store.SetState(s, "count", 0)
	cell.Set(1)
	cell.Set(2)

	got := testutil.ToFloat64(m.eventsTotal.WithLabelValues("count"))
	if got != 2 {
		t.Fatalf("events_total{key=count} = %v, want 2", got)
	}
}

func TestInstrumentStorageCountsOps(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg))

	backing := persist.NewMemoryStorage()
	cfg := m.InstrumentStorage(backing.Config())

	s := store.New(store.WithPersistence(cfg))

	// Creation: one load (miss) and one initial save.
	cell, err := store.SetState(s, "k", 1, store.WithPersist(true))
	if err != nil {
		t.Fatalf("SetState error: %v", err)
	}
	// Mutation: one write-through save.
	cell.Set(2)

	if got := testutil.ToFloat64(m.storageOps.WithLabelValues("load", "success")); got != 1 {
		t.Fatalf("storage_ops_total{op=load} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.storageOps.WithLabelValues("save", "success")); got != 2 {
		t.Fatalf("storage_ops_total{op=save} = %v, want 2", got)
	}

	if err := s.RemoveKey("k", nil); err != nil {
		t.Fatalf("RemoveKey error: %v", err)
	}
	if got := testutil.ToFloat64(m.storageOps.WithLabelValues("remove", "success")); got != 1 {
		t.Fatalf("storage_ops_total{op=remove} = %v, want 1", got)
	}

	if err := s.Clear(nil); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if got := testutil.ToFloat64(m.storageOps.WithLabelValues("clear", "success")); got != 1 {
		t.Fatalf("storage_ops_total{op=clear} = %v, want 1", got)
	}
}

func TestInstrumentStorageCountsErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg))

	cfg := m.InstrumentStorage(store.Config{
		SaveState: func(string, any, bool) error {
			return errors.New("disk full")
		},
		LoadState: func(string) (any, bool, error) {
			return nil, false, nil
		},
	})

	s := store.New(store.WithPersistence(cfg))
	if _, err := store.SetState(s, "k", 1, store.WithPersist(true)); err == nil {
		t.Fatalf("SetState expected the save error to propagate")
	}

	if got := testutil.ToFloat64(m.storageOps.WithLabelValues("save", "error")); got != 1 {
		t.Fatalf("storage_ops_total{op=save,status=error} = %v, want 1", got)
	}
}

func TestInstrumentStorageSkipsNilHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg))

	cfg := m.InstrumentStorage(store.Config{
		PersistEntireStore: store.Bool(true),
	})

	if cfg.SaveState != nil || cfg.LoadState != nil || cfg.RemoveState != nil || cfg.ClearStorage != nil {
		t.Fatalf("nil hooks gained wrappers")
	}
	if cfg.PersistEntireStore == nil || !*cfg.PersistEntireStore {
		t.Fatalf("PersistEntireStore was not preserved")
	}
}

func TestCustomNamespaceAndLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(
		WithRegistry(reg),
		WithNamespace("myapp"),
		WithSubsystem("state"),
		WithConstLabels(prometheus.Labels{"instance": "a"}),
	)

	s := store.New()
	s.Subscribe(m.Observer())
	cell, _ := store.SetState(s, "k", 0)
	cell.Set(1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "myapp_state_events_total" {
			found = true
		}
	}
	if !found {
		t.Fatalf("metric myapp_state_events_total not registered")
	}
}
