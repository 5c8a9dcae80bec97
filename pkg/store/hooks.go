package store

import (
	"github.com/Fxcilities/state-pool/pkg/state"
)

// StateHook is a consumer binding to one key: the current value plus a
// setter, with an attached observer that fires on every change.
type StateHook[T any] struct {
	cell    *state.Cell[T]
	binding *state.Binding[T]
}

// UseState resolves (creating if absent, per the usual GetState rules) the
// cell for key and binds onChange to it. All persistence, creation, and
// notification semantics are those of GetState/SetState; this is a thin
// composition over them.
func UseState[T any](s *Store, key string, onChange func(T), opts ...Option) (*StateHook[T], error) {
	cell, err := GetState[T](s, key, opts...)
	if err != nil {
		return nil, err
	}

	h := &StateHook[T]{cell: cell}
	if onChange != nil {
		h.binding = cell.Bind(state.Subscription[T]{
			OnChange: func(v any) {
				onChange(v.(T))
			},
		})
	}
	return h, nil
}

// Value returns the current state value.
func (h *StateHook[T]) Value() T {
	return h.cell.Get()
}

// Set replaces the state value.
func (h *StateHook[T]) Set(value T) {
	h.cell.Set(value)
}

// Update transforms the state value in place.
func (h *StateHook[T]) Update(fn func(T) T) {
	h.cell.Update(fn)
}

// Cell returns the underlying cell. The reference is stale once the key
// is removed from the store.
func (h *StateHook[T]) Cell() *state.Cell[T] {
	return h.cell
}

// Unbind detaches the hook's observer from the cell.
func (h *StateHook[T]) Unbind() {
	if h.binding != nil {
		h.binding.Unbind()
	}
}

// ReducerHook is a consumer binding to one key where updates flow through
// a reducer: Dispatch(action) replaces the value with reducer(current, action).
type ReducerHook[T, A any] struct {
	StateHook[T]
	reducer func(T, A) T
}

// UseReducer resolves the cell for key like UseState and wraps updates in
// the given reducer.
func UseReducer[T, A any](s *Store, reducer func(T, A) T, key string, onChange func(T), opts ...Option) (*ReducerHook[T, A], error) {
	h, err := UseState(s, key, onChange, opts...)
	if err != nil {
		return nil, err
	}
	return &ReducerHook[T, A]{
		StateHook: *h,
		reducer:   reducer,
	}, nil
}

// Dispatch runs the reducer against the current value and stores the result.
func (h *ReducerHook[T, A]) Dispatch(action A) {
	h.cell.Update(func(current T) T {
		return h.reducer(current, action)
	})
}

// BindState attaches a full selector/patcher subscription to the cell for
// key, resolving it with the usual GetState rules first. This is the
// lowest-level consumer binding; UseState and UseReducer are built on the
// same cells.
func BindState[T any](s *Store, key string, sub state.Subscription[T], opts ...Option) (*state.Binding[T], error) {
	cell, err := GetState[T](s, key, opts...)
	if err != nil {
		return nil, err
	}
	return cell.Bind(sub), nil
}
