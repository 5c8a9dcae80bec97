package state

import (
	"fmt"
	"reflect"
)

// AnyCell is the type-erased view of a Cell. The store keeps heterogeneous
// cells behind this interface; typed access goes through the generic
// accessors in the store package.
type AnyCell interface {
	// GetAny returns the current value as an interface{}.
	GetAny() any

	// SetAny sets the value from an interface{}.
	// Returns an error if the type doesn't match.
	SetAny(value any) error

	// Refresh forces all bound observers to re-evaluate against the
	// current value.
	Refresh()

	// Persist reports whether mutations are forwarded to persistent storage.
	Persist() bool

	// SetPersist stamps the persistence flag; only the first call has effect.
	SetPersist(persist bool)

	// ID returns the unique identifier for this cell.
	ID() uint64
}

var _ AnyCell = (*Cell[int])(nil)

// TypeMismatchError is returned by SetAny when the supplied value's dynamic
// type doesn't match the cell's value type.
type TypeMismatchError struct {
	Want reflect.Type
	Got  reflect.Type
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("state: type mismatch: cell holds %v, got %v", e.Want, e.Got)
}
