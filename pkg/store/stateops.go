package store

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/Fxcilities/state-pool/pkg/state"
)

// Option configures a single state creation or access.
type Option func(*options)

type options struct {
	// persist, when set, overrides the delegate's default-persist flag.
	persist *bool

	// def is the value used to create the state when the key is absent.
	def    any
	defSet bool
}

// WithPersist explicitly enables or disables persistence for the state
// being created. The explicit flag always wins over the delegate's
// PersistEntireStore default. Ignored when the key already exists.
func WithPersist(persist bool) Option {
	return func(o *options) {
		o.persist = &persist
	}
}

// WithDefault supplies a value for GetState to create the state with when
// the key is absent. Without it, accessing an absent key is an error.
// Ignored when the key already exists.
func WithDefault(value any) Option {
	return func(o *options) {
		o.def = value
		o.defSet = true
	}
}

// applyOptions applies the given options and returns the resulting config.
func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SetState creates a new cell under key seeded with initial and returns it.
//
// Effective persistence is the explicit WithPersist flag when given,
// otherwise the delegate's default. When persisting, a previously saved
// value overrides initial; with no saved value this is the initial set and
// the save hook runs with isInitialSet=true.
//
// An existing cell under key is silently overwritten with no removal
// semantics: subscribers of the old cell stop receiving updates and
// store-level observers see no event for the overwrite itself. Call
// Remove first for removal notifications.
func SetState[T any](s *Store, key string, initial T, opts ...Option) (*state.Cell[T], error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	o := applyOptions(opts)

	d := s.snapshotDelegate()
	persist := d.persistAll
	if o.persist != nil {
		persist = *o.persist
	}

	value := initial
	if persist {
		if d.load == nil || d.save == nil {
			return nil, &NotImplementedError{Op: "loadState/saveState"}
		}
		saved, found, err := d.load(key)
		if err != nil {
			return nil, fmt.Errorf("statepool: load %q: %w", key, err)
		}
		if found {
			v, convErr := convert[T](saved)
			if convErr != nil {
				return nil, fmt.Errorf("statepool: load %q: %w", key, convErr)
			}
			value = v
		} else if err := d.save(key, value, true); err != nil {
			return nil, fmt.Errorf("statepool: initial save %q: %w", key, err)
		}
	}

	cell := state.New(value)
	cell.SetPersist(persist)

	// The sole privileged subscriber: republish cell changes as
	// store-level events and write persisted values through. Hooks are
	// re-read per change so later Persist calls take effect. A cell that
	// has been removed or overwritten is stale: its listener goes quiet
	// so refreshes of old cells never leak stale events or saves.
	cell.Subscribe(state.Subscription[T]{
		OnChange: func(v any) {
			if current, ok := s.lookup(key); !ok || current != state.AnyCell(cell) {
				return
			}
			s.publish(Event{Key: key, Value: v})
			if !persist {
				return
			}
			if d := s.snapshotDelegate(); d.save != nil {
				if err := d.save(key, v, false); err != nil {
					s.saveError(key, err)
				}
			} else {
				s.saveError(key, &NotImplementedError{Op: "saveState"})
			}
		},
	})

	s.insert(key, cell)
	return cell, nil
}

// GetState returns the cell for key.
//
// When the key exists, the cell is returned unchanged and any
// WithDefault/WithPersist options are ignored (they apply only to
// creation). When the key is absent and WithDefault was supplied, the full
// SetState flow runs in place. Otherwise the access fails with a
// StateNotFoundError: access-before-create and access-after-remove are
// programmer errors and are never silently swallowed.
func GetState[T any](s *Store, key string, opts ...Option) (*state.Cell[T], error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if c, ok := s.lookup(key); ok {
		cell, ok := c.(*state.Cell[T])
		if !ok {
			var want T
			return nil, &state.TypeMismatchError{
				Want: reflect.TypeOf(want),
				Got:  reflect.TypeOf(c.GetAny()),
			}
		}
		return cell, nil
	}

	o := applyOptions(opts)
	if !o.defSet {
		return nil, &StateNotFoundError{Key: key}
	}
	def, err := convert[T](o.def)
	if err != nil {
		return nil, fmt.Errorf("statepool: default for %q: %w", key, err)
	}
	return SetState(s, key, def, opts...)
}

// convert coerces a value of unknown dynamic type to T. Values arriving
// from durable storage are raw JSON and get decoded; anything else falls
// back to a JSON round-trip so decoded generic containers
// (map[string]any, float64) still land in typed cells.
func convert[T any](v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}

	var out T
	switch raw := v.(type) {
	case json.RawMessage:
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, err
		}
		return out, nil
	case []byte:
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, err
		}
		return out, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return out, &state.TypeMismatchError{
			Want: reflect.TypeOf(out),
			Got:  reflect.TypeOf(v),
		}
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, &state.TypeMismatchError{
			Want: reflect.TypeOf(out),
			Got:  reflect.TypeOf(v),
		}
	}
	return out, nil
}
