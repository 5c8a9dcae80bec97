package state

// Subscription describes how a consumer binds to a cell.
type Subscription[T any] struct {
	// OnChange is invoked with the selected value on every change and on
	// Refresh. Required.
	OnChange func(selected any)

	// Selector projects the cell value before delivery. Optional; when nil
	// the observer receives the value itself.
	Selector func(value T) any

	// Patcher merges a partial update into the current value. Optional;
	// when nil Binding.Patch requires the full value type.
	Patcher func(current T, patch any) T
}

// Binding is a live attachment of one subscription to one cell.
type Binding[T any] struct {
	id   uint64
	cell *Cell[T]
	sub  Subscription[T]
}

// Bind attaches a subscription to the cell and returns the live binding.
func (c *Cell[T]) Bind(sub Subscription[T]) *Binding[T] {
	b := &Binding[T]{
		id:   nextID(),
		cell: c,
		sub:  sub,
	}

	c.subMu.Lock()
	c.subs = append(c.subs, b)
	c.subMu.Unlock()

	return b
}

// Subscribe attaches a subscription and returns a function that removes it.
// Unsubscribing twice is safe: the second call is a no-op.
func (c *Cell[T]) Subscribe(sub Subscription[T]) (unsubscribe func()) {
	b := c.Bind(sub)
	return b.Unbind
}

// ID returns the unique identifier for this binding.
func (b *Binding[T]) ID() uint64 {
	return b.id
}

// Unbind detaches the binding from its cell. Safe to call multiple times.
func (b *Binding[T]) Unbind() {
	c := b.cell

	c.subMu.Lock()
	defer c.subMu.Unlock()

	for i, existing := range c.subs {
		if existing.id == b.id {
			// Remove by swapping with last element (order doesn't matter)
			c.subs[i] = c.subs[len(c.subs)-1]
			c.subs = c.subs[:len(c.subs)-1]
			return
		}
	}
}

// Patch routes a partial update through the subscription's patcher and
// writes the result back to the cell. Without a patcher the patch must be
// a full value of the cell's type.
func (b *Binding[T]) Patch(patch any) error {
	if b.sub.Patcher != nil {
		b.cell.Update(func(current T) T {
			return b.sub.Patcher(current, patch)
		})
		return nil
	}
	return b.cell.SetAny(patch)
}

// receive delivers value to the binding's observer through its selector.
func (b *Binding[T]) receive(value T) {
	if b.sub.OnChange == nil {
		return
	}
	if b.sub.Selector != nil {
		b.sub.OnChange(b.sub.Selector(value))
		return
	}
	b.sub.OnChange(value)
}
