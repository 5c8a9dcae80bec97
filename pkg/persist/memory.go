package persist

import (
	"encoding/json"
	"sync"

	"github.com/Fxcilities/state-pool/pkg/store"
)

// MemoryStorage is an in-memory storage backend. Values survive store
// clears and key re-creation but not process restarts; it exists for
// tests and for hosts that want persistence semantics without durability.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]json.RawMessage
}

// NewMemoryStorage creates an empty in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string]json.RawMessage),
	}
}

// Save serializes value and stores it under key. Overwrites any prior value.
func (m *MemoryStorage) Save(key string, value any, isInitialSet bool) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = b
	return nil
}

// Load returns the saved raw value for key, found=false when absent.
func (m *MemoryStorage) Load(key string) (any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	// Return a copy so callers can't mutate stored bytes.
	raw := make(json.RawMessage, len(b))
	copy(raw, b)
	return raw, true, nil
}

// Remove deletes the saved value for key. Removing an absent key is not
// an error.
func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Clear deletes every saved value.
func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]json.RawMessage)
	return nil
}

// Count returns the number of saved keys. For monitoring/testing.
func (m *MemoryStorage) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Entries returns a copy of the saved key/value pairs.
func (m *MemoryStorage) Entries() map[string]json.RawMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(m.entries))
	for k, v := range m.entries {
		raw := make(json.RawMessage, len(v))
		copy(raw, v)
		out[k] = raw
	}
	return out
}

// Config returns the storage wired as store persistence hooks.
func (m *MemoryStorage) Config() store.Config {
	return store.Config{
		SaveState:    m.Save,
		LoadState:    m.Load,
		RemoveState:  m.Remove,
		ClearStorage: m.Clear,
	}
}
