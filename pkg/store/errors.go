package store

import (
	"errors"
	"fmt"
)

// ErrEmptyKey is returned when a state operation is given an empty key.
var ErrEmptyKey = errors.New("statepool: state key must be a non-empty string")

// StateNotFoundError is returned when a key is accessed before creation
// or after removal and no default value was supplied. This indicates
// caller misuse and is never swallowed by the store.
type StateNotFoundError struct {
	Key string
}

// Error implements the error interface.
func (e *StateNotFoundError) Error() string {
	return fmt.Sprintf("statepool: state not found: %q (create it with SetState or pass WithDefault)", e.Key)
}

// IsNotFound reports whether err is a state-not-found lookup error.
func IsNotFound(err error) bool {
	var nf *StateNotFoundError
	return errors.As(err, &nf)
}

// NotImplementedError is returned when persistence is requested but the
// store has no load/save hooks configured. Persistence is opt-in: hosts
// must supply both hooks together via Store.Persist or WithPersistence.
type NotImplementedError struct {
	Op string
}

// Error implements the error interface.
func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("statepool: %s is not implemented: configure both SaveState and LoadState hooks via Store.Persist before creating persisted state", e.Op)
}

// IsNotImplemented reports whether err is a missing-persistence
// configuration error.
func IsNotImplemented(err error) bool {
	var ni *NotImplementedError
	return errors.As(err, &ni)
}
