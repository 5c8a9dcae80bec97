// Package state provides the reactive value cell underlying the store.
//
// A Cell owns a single typed value and its own list of bound observers.
// Each binding carries an optional selector that projects the value before
// delivery and an optional patcher that merges partial updates back into
// the value.
//
// Usage:
//
//	count := state.New(0)
//
//	unbind := count.Subscribe(state.Subscription[int]{
//	    OnChange: func(v any) { fmt.Println("count is now", v) },
//	})
//	defer unbind()
//
//	count.Set(1)
package state
