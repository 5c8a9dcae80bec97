// Package store implements a process-wide keyed state registry with
// optional durable persistence.
//
// A Store maps string keys to reactive state cells. Consumers read and
// mutate cells directly; the store wires an internal listener onto every
// cell it creates, republishing changes as store-level events and writing
// persisted values through to the configured storage hooks.
//
// Usage:
//
//	s := store.New()
//
//	count, _ := store.SetState(s, "count", 0)
//	count.Set(1)
//
//	unsubscribe := s.Subscribe(store.NewObserver(func(ev store.Event) {
//	    fmt.Printf("%s changed to %v\n", ev.Key, ev.Value)
//	}))
//	defer unsubscribe()
//
// Persistence is opt-in. Install hooks (see the persist package for
// ready-made backends) and mark keys, or flip the store-wide default:
//
//	s.Persist(store.Config{
//	    SaveState:          storage.Save,
//	    LoadState:          storage.Load,
//	    RemoveState:        storage.Remove,
//	    ClearStorage:       storage.Clear,
//	    PersistEntireStore: store.Bool(true),
//	})
//
//	theme, _ := store.SetState(s, "theme", "light", store.WithPersist(true))
//
// All operations and notifications are synchronous. One misbehaving
// observer aborts the mutation that triggered it; the store performs no
// isolation, retry, or fallback beyond treating a missing saved value as
// the initial set.
package store
