package device

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the in-memory catalogue of checked-in devices.
//
// Devices are kept in first check-in order so listings are stable. A
// device that is evicted and later checks in again goes to the end.
//
// All public methods are thread-safe.
type Registry struct {
	mu       sync.RWMutex
	devices  map[string]*Device
	order    []string
	notified map[string]struct{}

	window time.Duration
	now    func() time.Time
	logger Logger
}

// NewRegistry creates an empty registry.
// onlineWindow is the presence window used by IsOnline.
func NewRegistry(onlineWindow time.Duration) *Registry {
	return &Registry{
		devices:  make(map[string]*Device),
		notified: make(map[string]struct{}),
		window:   onlineWindow,
		now:      time.Now,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetClock replaces the time source. Intended for tests.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Upsert replaces the record for id with attrs and marks it seen now.
// Returns ErrInvalidID if id fails ValidateID.
func (r *Registry) Upsert(id string, attrs Attributes) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[id]; !ok {
		r.order = append(r.order, id)
	}
	r.devices[id] = &Device{ID: id, Attributes: attrs, LastSeen: r.now()}
	return nil
}

// Touch refreshes lastSeen for id. It reports whether the device exists;
// unknown devices are not created.
func (r *Registry) Touch(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return false
	}
	d.LastSeen = r.now()
	return true
}

// Get returns a copy of the device with the given id.
func (r *Registry) Get(id string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// Lookup is Get with error results: ErrInvalidID for an unusable id and
// ErrDeviceNotFound when nothing is registered under it.
func (r *Registry) Lookup(id string) (Device, error) {
	if err := ValidateID(id); err != nil {
		return Device{}, err
	}
	d, ok := r.Get(id)
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return d, nil
}

// Exists reports whether id is currently registered.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[id]
	return ok
}

// List returns a snapshot of every device in insertion order.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.devices[id])
	}
	return out
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// IsOnline reports whether d was seen within the registry's online window.
func (r *Registry) IsOnline(d Device) bool {
	r.mu.RLock()
	now := r.now()
	r.mu.RUnlock()
	return d.Online(now, r.window)
}

// OnlineWindow returns the presence window used by IsOnline.
func (r *Registry) OnlineWindow() time.Duration {
	return r.window
}

// MarkNotified records that the "connected" notice for id has been sent.
// It returns true only the first time it is called for id since the
// device was last evicted.
func (r *Registry) MarkNotified(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.notified[id]; ok {
		return false
	}
	r.notified[id] = struct{}{}
	return true
}

// Sweep removes every device whose lastSeen is older than staleTimeout and
// returns their ids in insertion order. Eviction also forgets the
// notification state, so a returning device is announced again.
func (r *Registry) Sweep(staleTimeout time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var evicted []string
	kept := r.order[:0]
	for _, id := range r.order {
		d := r.devices[id]
		if now.Sub(d.LastSeen) > staleTimeout {
			delete(r.devices, id)
			delete(r.notified, id)
			evicted = append(evicted, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return evicted
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
// onEvict, if non-nil, receives each non-empty batch of evicted ids and is
// called outside the registry lock.
func (r *Registry) RunSweeper(ctx context.Context, interval, staleTimeout time.Duration, onEvict func([]string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := r.Sweep(staleTimeout)
			if len(evicted) == 0 {
				continue
			}
			r.logger.Info("stale devices evicted", "count", len(evicted), "devices", evicted)
			if onEvict != nil {
				onEvict(evicted)
			}
		}
	}
}
