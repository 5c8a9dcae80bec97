package store

import (
	"fmt"
	"sync"

	"github.com/Fxcilities/state-pool/pkg/state"
)

// Store is the central keyed state registry. It owns the key-to-cell map,
// the list of store-level observers, and the active persistence delegate.
//
// All notification is synchronous: store-level and cell-level observers
// run on the mutating caller's goroutine. Persistence hooks are likewise
// invoked synchronously from within mutation call paths; hosts supplying
// asynchronous persistence own the ordering of deferred saves relative to
// later reads and writes.
type Store struct {
	// mu protects cells and order.
	mu    sync.RWMutex
	cells map[string]state.AnyCell
	// order preserves key insertion order for batch operations.
	order []string

	// obsMu protects the store-level observer list.
	obsMu     sync.RWMutex
	observers []Observer

	// delMu protects the persistence delegate.
	delMu    sync.RWMutex
	delegate delegate

	// notifyMu protects the notification queue.
	notifyMu  sync.Mutex
	notifying bool
	pending   []Event

	onSaveError func(key string, err error)
}

// StoreOption configures a Store at construction time.
type StoreOption func(*Store)

// WithPersistence installs persistence hooks at construction. Equivalent
// to calling Persist(cfg) on the new store.
func WithPersistence(cfg Config) StoreOption {
	return func(s *Store) {
		s.Persist(cfg)
	}
}

// WithSaveErrorHandler routes failures of write-through saves triggered by
// cell mutations. Those saves run inside the change notification path,
// where no caller is available to receive an error. Default: discarded.
func WithSaveErrorHandler(fn func(key string, err error)) StoreOption {
	return func(s *Store) {
		s.onSaveError = fn
	}
}

// New creates an empty store.
func New(opts ...StoreOption) *Store {
	s := &Store{
		cells: make(map[string]state.AnyCell),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookup returns the live cell for key, if present.
func (s *Store) lookup(key string) (state.AnyCell, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cells[key]
	return c, ok
}

// insert places cell under key. An existing cell for the same key is
// silently overwritten with no removal semantics: callers that want
// removal notifications must Remove first.
func (s *Store) insert(key string, cell state.AnyCell) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cells[key]; !exists {
		s.order = append(s.order, key)
	}
	s.cells[key] = cell
}

// take removes and returns the cell for key.
func (s *Store) take(key string) (state.AnyCell, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cells[key]
	if !ok {
		return nil, false
	}
	delete(s.cells, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return c, true
}

// Has reports whether key currently exists in the store.
func (s *Store) Has(key string) bool {
	_, ok := s.lookup(key)
	return ok
}

// Keys returns the current keys in insertion order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys
}

// Len returns the number of keys in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cells)
}

// Value returns the current value for key without type information.
// Fails with a StateNotFoundError when the key is absent.
func (s *Store) Value(key string) (any, error) {
	c, ok := s.lookup(key)
	if !ok {
		return nil, &StateNotFoundError{Key: key}
	}
	return c.GetAny(), nil
}

// Cell returns the type-erased cell for key.
// Fails with a StateNotFoundError when the key is absent.
func (s *Store) Cell(key string) (state.AnyCell, error) {
	c, ok := s.lookup(key)
	if !ok {
		return nil, &StateNotFoundError{Key: key}
	}
	return c, nil
}

// Clear removes all keys in a single map swap, invokes the delegate's
// clear hook if present, runs the optional re-initialization callback
// (expected to SetState any keys that should exist immediately after
// clearing), and finally walks the original keys: keys the callback
// recreated get a store-level event with the new value, and every old
// cell is refreshed so consumers bound to it re-evaluate.
func (s *Store) Clear(reinit func()) error {
	s.mu.Lock()
	old := s.cells
	oldOrder := s.order
	s.cells = make(map[string]state.AnyCell)
	s.order = nil
	s.mu.Unlock()

	d := s.snapshotDelegate()
	if d.clear != nil {
		if err := d.clear(); err != nil {
			return fmt.Errorf("statepool: clear storage: %w", err)
		}
	}

	if reinit != nil {
		reinit()
	}

	for _, key := range oldOrder {
		if recreated, ok := s.lookup(key); ok {
			s.publish(Event{Key: key, Value: recreated.GetAny()})
		}
		old[key].Refresh()
	}
	return nil
}

// Remove deletes the given keys in input order. For each key the current
// cell is captured, the map entry deleted, and the delegate's remove hook
// invoked when one is configured and the cell was persisted. The optional
// re-initialization callback may recreate some keys; recreated keys get a
// store-level event with the new value, and every captured old cell is
// refreshed unconditionally.
//
// Removing a key that doesn't exist fails with a StateNotFoundError;
// keys processed before the failure stay removed.
func (s *Store) Remove(keys []string, reinit func()) error {
	type removedCell struct {
		key  string
		cell state.AnyCell
	}

	removed := make([]removedCell, 0, len(keys))
	for _, key := range keys {
		cell, ok := s.take(key)
		if !ok {
			return &StateNotFoundError{Key: key}
		}
		if d := s.snapshotDelegate(); d.remove != nil && cell.Persist() {
			if err := d.remove(key); err != nil {
				return fmt.Errorf("statepool: remove %q from storage: %w", key, err)
			}
		}
		removed = append(removed, removedCell{key: key, cell: cell})
	}

	if reinit != nil {
		reinit()
	}

	for _, r := range removed {
		if recreated, ok := s.lookup(r.key); ok {
			s.publish(Event{Key: r.key, Value: recreated.GetAny()})
		}
		r.cell.Refresh()
	}
	return nil
}

// RemoveKey removes a single key. See Remove.
func (s *Store) RemoveKey(key string, reinit func()) error {
	return s.Remove([]string{key}, reinit)
}
