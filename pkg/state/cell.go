package state

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// globalIDCounter is the source of unique IDs for cells and bindings.
// Using atomic operations ensures thread-safe ID generation without locks.
var globalIDCounter uint64

// nextID returns the next unique ID. IDs are monotonically increasing
// and never reused.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}

// Cell is a reactive value container. It holds a current value of type T,
// a persistence flag stamped once by its owning store, and a list of
// bindings notified synchronously on every value change.
type Cell[T any] struct {
	id uint64

	// value is the current cell value.
	value T

	// mu protects the value.
	mu sync.RWMutex

	// subs are the bindings attached to this cell.
	subs []*Binding[T]

	// subMu protects the subs slice.
	subMu sync.RWMutex

	// equal is the equality function used to determine if the value changed.
	// If nil, uses default equality checking.
	equal func(T, T) bool

	// persist records whether mutations are forwarded to persistent storage.
	// It is settable exactly once, by the owning store, after construction.
	persist    bool
	persistSet bool
	persistMu  sync.Mutex
}

// New creates a new cell with the given initial value.
func New[T any](initial T) *Cell[T] {
	return &Cell[T]{
		id:    nextID(),
		value: initial,
	}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set updates the cell's value and notifies bindings if the value changed.
// Uses the cell's equality function to determine if the value changed.
func (c *Cell[T]) Set(value T) {
	c.mu.Lock()
	changed := !c.equals(c.value, value)
	if changed {
		c.value = value
	}
	c.mu.Unlock()

	if changed {
		c.deliver(value)
	}
}

// Update atomically reads and updates the cell's value.
// The function receives the current value and returns the new value.
func (c *Cell[T]) Update(fn func(T) T) {
	c.mu.Lock()
	oldValue := c.value
	newValue := fn(oldValue)
	changed := !c.equals(oldValue, newValue)
	if changed {
		c.value = newValue
	}
	c.mu.Unlock()

	if changed {
		c.deliver(newValue)
	}
}

// Refresh forces every binding to re-evaluate against the current value,
// whether or not the value changed. The store uses this after batch
// removal so consumers bound to a removed-or-replaced key re-evaluate.
func (c *Cell[T]) Refresh() {
	c.deliver(c.Get())
}

// deliver pushes value through each binding's selector to its observer.
// Uses copy-before-notify to avoid holding locks during notification.
func (c *Cell[T]) deliver(value T) {
	c.subMu.RLock()
	subs := make([]*Binding[T], len(c.subs))
	copy(subs, c.subs)
	c.subMu.RUnlock()

	for _, b := range subs {
		b.receive(value)
	}
}

// WithEquals returns the cell configured with a custom equality function.
// This is useful for custom types where reflect.DeepEqual is too expensive
// or has incorrect semantics.
func (c *Cell[T]) WithEquals(fn func(T, T) bool) *Cell[T] {
	c.equal = fn
	return c
}

// ID returns the unique identifier for this cell.
func (c *Cell[T]) ID() uint64 {
	return c.id
}

// Persist reports whether mutations of this cell are forwarded to
// persistent storage.
func (c *Cell[T]) Persist() bool {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	return c.persist
}

// SetPersist stamps the persistence flag. The flag is fixed at creation
// time: only the first call has any effect.
func (c *Cell[T]) SetPersist(persist bool) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if c.persistSet {
		return
	}
	c.persist = persist
	c.persistSet = true
}

// GetAny returns the current value as an interface{}.
func (c *Cell[T]) GetAny() any {
	return c.Get()
}

// SetAny sets the value from an interface{}.
// Returns a *TypeMismatchError if the dynamic type doesn't match T.
func (c *Cell[T]) SetAny(value any) error {
	v, ok := value.(T)
	if !ok {
		var want T
		return &TypeMismatchError{
			Want: reflect.TypeOf(want),
			Got:  reflect.TypeOf(value),
		}
	}
	c.Set(v)
	return nil
}

// equals checks if two values are equal using the configured equality function.
func (c *Cell[T]) equals(a, b T) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals provides type-appropriate equality checking.
// Uses == for comparable types and reflect.DeepEqual for others.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int8:
		return av == any(b).(int8)
	case int16:
		return av == any(b).(int16)
	case int32:
		return av == any(b).(int32)
	case int64:
		return av == any(b).(int64)
	case uint:
		return av == any(b).(uint)
	case uint8:
		return av == any(b).(uint8)
	case uint16:
		return av == any(b).(uint16)
	case uint32:
		return av == any(b).(uint32)
	case uint64:
		return av == any(b).(uint64)
	case float32:
		return av == any(b).(float32)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	default:
		// Fall back to reflect.DeepEqual for slices, maps, structs, etc.
		return reflect.DeepEqual(a, b)
	}
}
