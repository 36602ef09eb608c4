package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry() (*Registry, *fakeClock) {
	clock := newFakeClock()
	r := NewRegistry(60 * time.Second)
	r.SetClock(clock.Now)
	return r, clock
}

func TestRegistry_UpsertAndGet(t *testing.T) {
	r, clock := newTestRegistry()

	if err := r.Upsert("dev-1", Attributes{Model: "Pixel 7", Battery: 80, SIM1: "Jio"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, ok := r.Get("dev-1")
	if !ok {
		t.Fatal("Get() ok = false")
	}
	if got.Model != "Pixel 7" || got.Battery != 80 || got.SIM1 != "Jio" {
		t.Errorf("Get() = %+v", got)
	}
	if !got.LastSeen.Equal(clock.Now()) {
		t.Errorf("LastSeen = %v, want %v", got.LastSeen, clock.Now())
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r, _ := newTestRegistry()
	if err := r.Upsert("dev-1", Attributes{Model: "Pixel 7"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		id      string
		wantErr error
	}{
		{id: "dev-1"},
		{id: "dev-2", wantErr: ErrDeviceNotFound},
		{id: "", wantErr: ErrInvalidID},
		{id: "a:b", wantErr: ErrInvalidID},
	}
	for _, tt := range tests {
		d, err := r.Lookup(tt.id)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Lookup(%q) error = %v, want %v", tt.id, err, tt.wantErr)
		}
		if tt.wantErr == nil && d.Model != "Pixel 7" {
			t.Errorf("Lookup(%q) = %+v", tt.id, d)
		}
	}
}

func TestRegistry_UpsertReplacesAttributes(t *testing.T) {
	r, _ := newTestRegistry()

	_ = r.Upsert("dev-1", Attributes{Model: "Pixel 7", SIM1: "Jio", SIM2: "Airtel"})
	_ = r.Upsert("dev-1", Attributes{Model: "Pixel 7", Battery: 55})

	got, _ := r.Get("dev-1")
	if got.SIM1 != "" || got.SIM2 != "" {
		t.Errorf("attributes were merged, want replaced: %+v", got)
	}
	if got.Battery != 55 {
		t.Errorf("Battery = %d, want 55", got.Battery)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_UpsertInvalidID(t *testing.T) {
	r, _ := newTestRegistry()

	for _, id := range []string{"", "   ", "../etc", "a/b", `a\b`, "bad\x00id"} {
		if err := r.Upsert(id, Attributes{}); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Upsert(%q) error = %v, want ErrInvalidID", id, err)
		}
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after invalid upserts", r.Len())
	}
}

func TestRegistry_Touch(t *testing.T) {
	r, clock := newTestRegistry()

	if r.Touch("ghost") {
		t.Error("Touch() on unknown device returned true")
	}
	if r.Exists("ghost") {
		t.Error("Touch() created an unknown device")
	}

	_ = r.Upsert("dev-1", Attributes{})
	clock.Advance(45 * time.Second)
	if !r.Touch("dev-1") {
		t.Fatal("Touch() on known device returned false")
	}

	got, _ := r.Get("dev-1")
	if !got.LastSeen.Equal(clock.Now()) {
		t.Errorf("LastSeen not refreshed: %v", got.LastSeen)
	}
}

func TestRegistry_ListInsertionOrder(t *testing.T) {
	r, _ := newTestRegistry()

	ids := []string{"charlie", "alpha", "bravo"}
	for _, id := range ids {
		_ = r.Upsert(id, Attributes{})
	}
	// Re-check-in must not move a device.
	_ = r.Upsert("charlie", Attributes{Model: "again"})

	list := r.List()
	if len(list) != len(ids) {
		t.Fatalf("List() len = %d, want %d", len(list), len(ids))
	}
	for i, d := range list {
		if d.ID != ids[i] {
			t.Errorf("List()[%d] = %s, want %s", i, d.ID, ids[i])
		}
	}
}

func TestRegistry_ListReturnsCopies(t *testing.T) {
	r, _ := newTestRegistry()
	_ = r.Upsert("dev-1", Attributes{Model: "orig"})

	list := r.List()
	list[0].Model = "mutated"

	got, _ := r.Get("dev-1")
	if got.Model != "orig" {
		t.Errorf("registry state mutated through List(): %q", got.Model)
	}
}

func TestRegistry_OnlineWindow(t *testing.T) {
	r, clock := newTestRegistry()
	_ = r.Upsert("dev-1", Attributes{})

	clock.Advance(30 * time.Second)
	r.Touch("dev-1")
	clock.Advance(59 * time.Second)

	d, _ := r.Get("dev-1")
	if !r.IsOnline(d) {
		t.Error("device should be online 59s after last poll")
	}

	clock.Advance(time.Second)
	if r.IsOnline(d) {
		t.Error("device should be offline at exactly the window")
	}
}

func TestRegistry_Sweep(t *testing.T) {
	r, clock := newTestRegistry()
	_ = r.Upsert("stale", Attributes{})
	_ = r.Upsert("fresh", Attributes{})

	clock.Advance(4 * time.Minute)
	r.Touch("fresh")
	clock.Advance(time.Minute + time.Second)

	evicted := r.Sweep(5 * time.Minute)
	if len(evicted) != 1 || evicted[0] != "stale" {
		t.Fatalf("Sweep() = %v, want [stale]", evicted)
	}
	if r.Exists("stale") {
		t.Error("stale device still present")
	}
	if !r.Exists("fresh") {
		t.Error("fresh device evicted")
	}
	if list := r.List(); len(list) != 1 || list[0].ID != "fresh" {
		t.Errorf("List() after sweep = %v", list)
	}
}

func TestRegistry_MarkNotifiedResetByEviction(t *testing.T) {
	r, clock := newTestRegistry()
	_ = r.Upsert("dev-1", Attributes{})

	if !r.MarkNotified("dev-1") {
		t.Fatal("first MarkNotified() = false")
	}
	if r.MarkNotified("dev-1") {
		t.Fatal("second MarkNotified() = true")
	}

	clock.Advance(6 * time.Minute)
	r.Sweep(5 * time.Minute)

	_ = r.Upsert("dev-1", Attributes{})
	if !r.MarkNotified("dev-1") {
		t.Error("MarkNotified() after eviction = false, want true")
	}
}

func TestRegistry_RunSweeper(t *testing.T) {
	r := NewRegistry(time.Minute)
	_ = r.Upsert("dev-1", Attributes{})

	// Make every device look stale relative to the sweeper's clock.
	r.SetClock(func() time.Time { return time.Now().Add(time.Hour) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []string, 1)
	go r.RunSweeper(ctx, 10*time.Millisecond, 5*time.Minute, func(ids []string) {
		select {
		case got <- ids:
		default:
		}
	})

	select {
	case ids := <-got:
		if len(ids) != 1 || ids[0] != "dev-1" {
			t.Errorf("evicted = %v, want [dev-1]", ids)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not evict within 2s")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r, _ := newTestRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("dev-%d", i%5)
			_ = r.Upsert(id, Attributes{Battery: i})
			r.Touch(id)
			r.List()
			r.Sweep(time.Hour)
		}(i)
	}
	wg.Wait()

	if r.Len() != 5 {
		t.Errorf("Len() = %d, want 5", r.Len())
	}
}
