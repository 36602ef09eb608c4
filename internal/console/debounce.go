package console

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// debouncer admits at most one input per operator per interval.
type debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

// Allow reports whether key may act now and consumes its token if so.
// A non-positive interval disables debouncing.
func (d *debouncer) Allow(key string) bool {
	if d.interval <= 0 {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	lim, ok := d.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(d.interval), 1)
		d.limiters[key] = lim
	}
	return lim.AllowN(d.now(), 1)
}
