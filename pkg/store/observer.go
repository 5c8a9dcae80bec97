package store

import "sync/atomic"

// observerIDCounter is the source of unique observer IDs.
var observerIDCounter uint64

// nextObserverID returns the next unique observer ID.
func nextObserverID() uint64 {
	return atomic.AddUint64(&observerIDCounter, 1)
}

// Event is the immutable change record emitted to store-level observers
// whenever a named state's value changes, is re-created, or is removed.
type Event struct {
	Key   string
	Value any
}

// Observer receives store-level change events. Observers are identified by
// ID for deduplication: subscribing the same observer twice is a no-op.
type Observer interface {
	// Notify delivers one change event. Notification is synchronous and
	// fire-and-forget: the store does not wait for any asynchronous work
	// the observer triggers.
	Notify(Event)

	// ID returns a unique identifier for this observer.
	ID() uint64
}

// funcObserver adapts a plain function to the Observer interface.
type funcObserver struct {
	id uint64
	fn func(Event)
}

func (o *funcObserver) Notify(ev Event) { o.fn(ev) }
func (o *funcObserver) ID() uint64      { return o.id }

// NewObserver wraps a function as a store-level observer with a fresh
// identity. Each call returns a distinct observer, even for the same
// function.
func NewObserver(fn func(Event)) Observer {
	return &funcObserver{
		id: nextObserverID(),
		fn: fn,
	}
}

// Subscribe registers a store-level observer and returns a function that
// removes it. Re-subscribing the same observer identity is a no-op; so is
// calling the returned unsubscribe more than once.
func (s *Store) Subscribe(o Observer) (unsubscribe func()) {
	if o == nil {
		return func() {}
	}

	s.obsMu.Lock()
	oid := o.ID()
	dup := false
	for _, existing := range s.observers {
		if existing.ID() == oid {
			dup = true
			break
		}
	}
	if !dup {
		s.observers = append(s.observers, o)
	}
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		for i, existing := range s.observers {
			if existing.ID() == oid {
				// Preserve subscription order for the remaining observers.
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// snapshotObservers copies the observer list so notification happens
// without holding the lock.
func (s *Store) snapshotObservers() []Observer {
	s.obsMu.RLock()
	defer s.obsMu.RUnlock()
	obs := make([]Observer, len(s.observers))
	copy(obs, s.observers)
	return obs
}

// publish emits ev to every registered observer in subscription order.
// Events published while a notification pass is already running (an
// observer calling back into the store) are queued and drained after the
// current pass completes, so a single pass never interleaves.
// Observer panics are not recovered; they propagate to the mutating caller.
func (s *Store) publish(ev Event) {
	s.notifyMu.Lock()
	s.pending = append(s.pending, ev)
	if s.notifying {
		s.notifyMu.Unlock()
		return
	}
	s.notifying = true
	s.notifyMu.Unlock()

	defer func() {
		s.notifyMu.Lock()
		s.notifying = false
		s.notifyMu.Unlock()
	}()

	for {
		s.notifyMu.Lock()
		if len(s.pending) == 0 {
			s.notifyMu.Unlock()
			return
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.notifyMu.Unlock()

		for _, o := range s.snapshotObservers() {
			o.Notify(next)
		}
	}
}
