package tracing

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Fxcilities/state-pool/pkg/persist"
	"github.com/Fxcilities/state-pool/pkg/store"
)

// These tests run against the default no-op tracer provider: they verify
// that the wrappers are transparent, values and errors flowing through
// unchanged whether or not a real provider is installed.

func TestInstrumentStoragePassesValuesThrough(t *testing.T) {
	backing := persist.NewMemoryStorage()
	backing.Save("k", 42, true)

	cfg := InstrumentStorage(backing.Config())

	v, found, err := cfg.LoadState("k")
	if err != nil {
		t.Fatalf("LoadState error: %v", err)
	}
	if !found {
		t.Fatalf("LoadState(saved key) found = false")
	}
	if v == nil {
		t.Fatalf("LoadState returned nil value")
	}

	if err := cfg.SaveState("k2", "v", true); err != nil {
		t.Fatalf("SaveState error: %v", err)
	}
	if backing.Count() != 2 {
		t.Fatalf("backing count = %d, want 2", backing.Count())
	}

	if err := cfg.RemoveState("k2"); err != nil {
		t.Fatalf("RemoveState error: %v", err)
	}
	if err := cfg.ClearStorage(); err != nil {
		t.Fatalf("ClearStorage error: %v", err)
	}
	if backing.Count() != 0 {
		t.Fatalf("backing count after clear = %d, want 0", backing.Count())
	}
}

func TestInstrumentStoragePropagatesErrors(t *testing.T) {
	boom := errors.New("backend down")
	cfg := InstrumentStorage(store.Config{
		SaveState: func(string, any, bool) error { return boom },
		LoadState: func(string) (any, bool, error) { return nil, false, boom },
	})

	if err := cfg.SaveState("k", 1, true); !errors.Is(err, boom) {
		t.Fatalf("SaveState error = %v, want %v", err, boom)
	}
	if _, _, err := cfg.LoadState("k"); !errors.Is(err, boom) {
		t.Fatalf("LoadState error = %v, want %v", err, boom)
	}
}

func TestInstrumentStorageSkipsNilHooks(t *testing.T) {
	cfg := InstrumentStorage(store.Config{
		PersistEntireStore: store.Bool(true),
	})

	if cfg.SaveState != nil || cfg.LoadState != nil || cfg.RemoveState != nil || cfg.ClearStorage != nil {
		t.Fatalf("nil hooks gained wrappers")
	}
	if cfg.PersistEntireStore == nil || !*cfg.PersistEntireStore {
		t.Fatalf("PersistEntireStore was not preserved")
	}
}

func TestInstrumentStorageBacksStore(t *testing.T) {
	backing := persist.NewMemoryStorage()
	cfg := InstrumentStorage(backing.Config(),
		WithTracerName("test"),
		WithAttributes(attribute.String("store", "primary")),
	)

	s := store.New(store.WithPersistence(cfg))

	cell, err := store.SetState(s, "count", 1, store.WithPersist(true))
	if err != nil {
		t.Fatalf("SetState error: %v", err)
	}
	cell.Set(2)

	if string(backing.Entries()["count"]) != "2" {
		t.Fatalf("stored value = %s, want 2", backing.Entries()["count"])
	}
}
