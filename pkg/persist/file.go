package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Fxcilities/state-pool/pkg/store"
)

// fileFormatVersion is the current version of the on-disk format.
// Increment when making breaking changes to the format.
const fileFormatVersion = 1

// fileDocument is the JSON document a FileStorage keeps on disk.
type fileDocument struct {
	Version int                        `json:"version"`
	States  map[string]json.RawMessage `json:"states"`
}

// FileStorage keeps every saved value in a single versioned JSON document.
// Writes replace the whole document atomically (write to a temp file in
// the same directory, then rename), so a crash mid-save never leaves a
// truncated document behind.
type FileStorage struct {
	path string

	mu      sync.Mutex
	entries map[string]json.RawMessage
}

// NewFileStorage opens or creates the document at path. An existing
// document is loaded eagerly; a missing file starts empty.
func NewFileStorage(path string) (*FileStorage, error) {
	f := &FileStorage{
		path:    path,
		entries: make(map[string]json.RawMessage),
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: read %s: %w", path, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("persist: parse %s: %w", path, err)
	}
	if doc.Version > fileFormatVersion {
		return nil, fmt.Errorf("persist: %s has format version %d, this build reads up to %d", path, doc.Version, fileFormatVersion)
	}
	if doc.States != nil {
		f.entries = doc.States
	}
	return f, nil
}

// Path returns the document path.
func (f *FileStorage) Path() string {
	return f.path
}

// Save serializes value under key and rewrites the document.
func (f *FileStorage) Save(key string, value any, isInitialSet bool) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = b
	return f.flushLocked()
}

// Load returns the saved raw value for key, found=false when absent.
func (f *FileStorage) Load(key string) (any, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.entries[key]
	if !ok {
		return nil, false, nil
	}
	raw := make(json.RawMessage, len(b))
	copy(raw, b)
	return raw, true, nil
}

// Remove deletes the saved value for key and rewrites the document.
func (f *FileStorage) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.entries[key]; !ok {
		return nil
	}
	delete(f.entries, key)
	return f.flushLocked()
}

// Clear deletes every saved value and rewrites the document.
func (f *FileStorage) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[string]json.RawMessage)
	return f.flushLocked()
}

// Entries returns a copy of the saved key/value pairs.
func (f *FileStorage) Entries() map[string]json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]json.RawMessage, len(f.entries))
	for k, v := range f.entries {
		raw := make(json.RawMessage, len(v))
		copy(raw, v)
		out[k] = raw
	}
	return out
}

// Config returns the storage wired as store persistence hooks.
func (f *FileStorage) Config() store.Config {
	return store.Config{
		SaveState:    f.Save,
		LoadState:    f.Load,
		RemoveState:  f.Remove,
		ClearStorage: f.Clear,
	}
}

// flushLocked writes the document atomically. Callers hold f.mu.
func (f *FileStorage) flushLocked() error {
	doc := fileDocument{
		Version: fileFormatVersion,
		States:  f.entries,
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".statepool-*.json")
	if err != nil {
		return fmt.Errorf("persist: write %s: %w", f.path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("persist: write %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persist: write %s: %w", f.path, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persist: write %s: %w", f.path, err)
	}
	return nil
}
