package state

import (
	"testing"
)

func TestCellGetSet(t *testing.T) {
	c := New(10)

	if got := c.Get(); got != 10 {
		t.Fatalf("Get() = %d, want 10", got)
	}

	c.Set(20)
	if got := c.Get(); got != 20 {
		t.Fatalf("Get() after Set = %d, want 20", got)
	}
}

func TestCellUpdate(t *testing.T) {
	c := New(1)
	c.Update(func(n int) int { return n * 5 })

	if got := c.Get(); got != 5 {
		t.Fatalf("Get() after Update = %d, want 5", got)
	}
}

func TestCellSubscribeNotifiesOnChange(t *testing.T) {
	c := New("a")

	var got []string
	unsubscribe := c.Subscribe(Subscription[string]{
		OnChange: func(v any) {
			got = append(got, v.(string))
		},
	})
	defer unsubscribe()

	c.Set("b")
	c.Set("c")

	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("observed %v, want [b c]", got)
	}
}

func TestCellEqualValueSuppressesNotification(t *testing.T) {
	c := New(7)

	calls := 0
	c.Subscribe(Subscription[int]{
		OnChange: func(any) { calls++ },
	})

	c.Set(7)
	if calls != 0 {
		t.Fatalf("notifications for unchanged value = %d, want 0", calls)
	}

	c.Set(8)
	if calls != 1 {
		t.Fatalf("notifications = %d, want 1", calls)
	}
}

func TestCellUnsubscribeStopsNotifications(t *testing.T) {
	c := New(0)

	calls := 0
	unsubscribe := c.Subscribe(Subscription[int]{
		OnChange: func(any) { calls++ },
	})

	c.Set(1)
	unsubscribe()
	// Second call is a no-op.
	unsubscribe()
	c.Set(2)

	if calls != 1 {
		t.Fatalf("notifications after unsubscribe = %d, want 1", calls)
	}
}

func TestCellRefreshReevaluatesAllBindings(t *testing.T) {
	c := New(42)

	var got []int
	c.Subscribe(Subscription[int]{
		OnChange: func(v any) { got = append(got, v.(int)) },
	})
	c.Subscribe(Subscription[int]{
		OnChange: func(v any) { got = append(got, v.(int)) },
	})

	c.Refresh()

	if len(got) != 2 || got[0] != 42 || got[1] != 42 {
		t.Fatalf("refresh delivered %v, want [42 42]", got)
	}
}

func TestCellSelectorProjectsValue(t *testing.T) {
	type user struct {
		Name string
		Age  int
	}
	c := New(user{Name: "Ada", Age: 36})

	var got any
	c.Subscribe(Subscription[user]{
		OnChange: func(v any) { got = v },
		Selector: func(u user) any { return u.Name },
	})

	c.Set(user{Name: "Grace", Age: 45})

	if got != "Grace" {
		t.Fatalf("selected value = %v, want Grace", got)
	}
}

func TestBindingPatchUsesPatcher(t *testing.T) {
	type settings struct {
		Theme string
		Size  int
	}
	c := New(settings{Theme: "light", Size: 12})

	b := c.Bind(Subscription[settings]{
		OnChange: func(any) {},
		Patcher: func(current settings, patch any) settings {
			current.Theme = patch.(string)
			return current
		},
	})

	if err := b.Patch("dark"); err != nil {
		t.Fatalf("Patch() error: %v", err)
	}

	got := c.Get()
	if got.Theme != "dark" || got.Size != 12 {
		t.Fatalf("patched value = %+v, want Theme=dark Size=12", got)
	}
}

func TestBindingPatchWithoutPatcherRequiresFullValue(t *testing.T) {
	c := New(1)
	b := c.Bind(Subscription[int]{OnChange: func(any) {}})

	if err := b.Patch(2); err != nil {
		t.Fatalf("Patch(full value) error: %v", err)
	}
	if got := c.Get(); got != 2 {
		t.Fatalf("Get() = %d, want 2", got)
	}

	if err := b.Patch("nope"); err == nil {
		t.Fatalf("Patch(wrong type) expected error")
	}
}

func TestCellSetPersistOnce(t *testing.T) {
	c := New(0)

	if c.Persist() {
		t.Fatalf("Persist() = true before stamping")
	}

	c.SetPersist(true)
	if !c.Persist() {
		t.Fatalf("Persist() = false, want true")
	}

	// The flag is fixed at creation time; later calls are no-ops.
	c.SetPersist(false)
	if !c.Persist() {
		t.Fatalf("Persist() changed after second SetPersist")
	}
}

func TestCellSetAny(t *testing.T) {
	c := New(123)

	if got := c.GetAny(); got != 123 {
		t.Fatalf("GetAny() = %v, want 123", got)
	}

	if err := c.SetAny(456); err != nil {
		t.Fatalf("SetAny(correct type) error: %v", err)
	}
	if got := c.Get(); got != 456 {
		t.Fatalf("Get() after SetAny = %d, want 456", got)
	}

	err := c.SetAny("nope")
	if err == nil {
		t.Fatalf("SetAny(wrong type) expected error")
	}
	if _, ok := err.(*TypeMismatchError); !ok {
		t.Fatalf("SetAny(wrong type) error type = %T, want *TypeMismatchError", err)
	}
	if err.Error() == "" {
		t.Fatalf("TypeMismatchError.Error() should be non-empty")
	}
}

func TestCellWithEquals(t *testing.T) {
	// Treat same-length strings as equal.
	c := New("go").WithEquals(func(a, b string) bool {
		return len(a) == len(b)
	})

	calls := 0
	c.Subscribe(Subscription[string]{OnChange: func(any) { calls++ }})

	c.Set("GO")
	if calls != 0 {
		t.Fatalf("notifications = %d, want 0 for equal-by-custom-fn value", calls)
	}

	c.Set("gopher")
	if calls != 1 {
		t.Fatalf("notifications = %d, want 1", calls)
	}
}

func TestDefaultEqualsDeepForSlices(t *testing.T) {
	c := New([]int{1, 2})

	calls := 0
	c.Subscribe(Subscription[[]int]{OnChange: func(any) { calls++ }})

	c.Set([]int{1, 2})
	if calls != 0 {
		t.Fatalf("notifications = %d, want 0 for deep-equal slice", calls)
	}

	c.Set([]int{1, 2, 3})
	if calls != 1 {
		t.Fatalf("notifications = %d, want 1", calls)
	}
}

func TestCellIDsAreUnique(t *testing.T) {
	a := New(0)
	b := New(0)
	if a.ID() == b.ID() {
		t.Fatalf("two cells share ID %d", a.ID())
	}
}
