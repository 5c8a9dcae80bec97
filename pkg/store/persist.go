package store

// Config carries persistence hooks for a store. Only fields that are set
// overwrite the store's current behavior: applying a Config with just a
// RemoveState hook leaves previously configured SaveState/LoadState hooks
// intact (partial-override semantics).
type Config struct {
	// SaveState persists the value for key. isInitialSet distinguishes the
	// first-ever write of a key from subsequent updates.
	SaveState func(key string, value any, isInitialSet bool) error

	// LoadState retrieves a previously saved value for key. found=false
	// means "no saved value": the caller-supplied initial value is used
	// and written through as the initial set.
	LoadState func(key string) (value any, found bool, err error)

	// RemoveState deletes the saved value for key. Optional.
	RemoveState func(key string) error

	// ClearStorage deletes every saved value. Optional.
	ClearStorage func() error

	// PersistEntireStore sets the store-wide default persistence flag,
	// applied when a caller does not pass WithPersist at creation time.
	// Nil leaves the current default untouched.
	PersistEntireStore *bool
}

// delegate is the store's resolved persistence strategy. The zero value
// means persistence is unconfigured: persisted state creation fails with a
// NotImplementedError until both load and save hooks are installed.
type delegate struct {
	save       func(key string, value any, isInitialSet bool) error
	load       func(key string) (any, bool, error)
	remove     func(key string) error
	clear      func() error
	persistAll bool
}

// Persist installs persistence hooks onto this store's delegate. Omitted
// (nil) fields leave prior behavior intact. Unlike a process-wide
// configuration, the delegate is owned per store instance; other stores
// are unaffected. Replacing hooks affects only subsequent operations.
func (s *Store) Persist(cfg Config) {
	s.delMu.Lock()
	defer s.delMu.Unlock()

	if cfg.SaveState != nil {
		s.delegate.save = cfg.SaveState
	}
	if cfg.LoadState != nil {
		s.delegate.load = cfg.LoadState
	}
	if cfg.RemoveState != nil {
		s.delegate.remove = cfg.RemoveState
	}
	if cfg.ClearStorage != nil {
		s.delegate.clear = cfg.ClearStorage
	}
	if cfg.PersistEntireStore != nil {
		s.delegate.persistAll = *cfg.PersistEntireStore
	}
}

// snapshotDelegate copies the current hook set. Hooks are read at
// operation time, so replacing them affects only subsequent operations.
func (s *Store) snapshotDelegate() delegate {
	s.delMu.RLock()
	defer s.delMu.RUnlock()
	return s.delegate
}

// saveError routes a persistence failure raised inside the internal
// change listener, where no caller is available to receive the error.
func (s *Store) saveError(key string, err error) {
	if s.onSaveError != nil {
		s.onSaveError(key, err)
	}
}

// Bool is a convenience for Config.PersistEntireStore.
func Bool(b bool) *bool {
	return &b
}
