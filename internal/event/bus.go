package event

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultQueueSize is the per-sink event buffer.
	DefaultQueueSize = 256

	// DefaultSinkTimeout bounds a single Handle call.
	DefaultSinkTimeout = 10 * time.Second
)

// Sink consumes events.
type Sink interface {
	Name() string
	Handle(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, e Event) error
}

// Name implements Sink.
func (f SinkFunc) Name() string { return f.SinkName }

// Handle implements Sink.
func (f SinkFunc) Handle(ctx context.Context, e Event) error { return f.Fn(ctx, e) }

// Logger defines the logging interface used by the Bus.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type worker struct {
	sink  Sink
	queue chan Event
}

// Bus delivers published events to registered sinks asynchronously.
type Bus struct {
	mu      sync.RWMutex
	workers []*worker
	closed  bool
	wg      sync.WaitGroup

	queueSize int
	timeout   time.Duration
	now       func() time.Time
	logger    Logger
}

// NewBus creates a bus. Non-positive arguments use the defaults.
func NewBus(queueSize int, sinkTimeout time.Duration) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if sinkTimeout <= 0 {
		sinkTimeout = DefaultSinkTimeout
	}
	return &Bus{
		queueSize: queueSize,
		timeout:   sinkTimeout,
		now:       time.Now,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the bus.
func (b *Bus) SetLogger(logger Logger) {
	b.logger = logger
}

// Register adds a sink and starts its worker. Registering after Close is a
// no-op.
func (b *Bus) Register(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	w := &worker{sink: sink, queue: make(chan Event, b.queueSize)}
	b.workers = append(b.workers, w)

	b.wg.Add(1)
	go b.run(w)
}

// Sinks returns the names of the registered sinks.
func (b *Bus) Sinks() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.workers))
	for _, w := range b.workers {
		names = append(names, w.sink.Name())
	}
	return names
}

// Publish queues e for every sink. It never blocks; a sink whose queue is
// full misses the event. A zero Time is set to now.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, w := range b.workers {
		select {
		case w.queue <- e:
		default:
			b.logger.Warn("event dropped, sink queue full", "sink", w.sink.Name(), "type", e.Type, "device_id", e.DeviceID)
		}
	}
}

// Close stops accepting events and waits for queued events to be handled
// or for ctx to end.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		for _, w := range b.workers {
			close(w.queue)
		}
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus drain: %w", ctx.Err())
	}
}

func (b *Bus) run(w *worker) {
	defer b.wg.Done()
	for e := range w.queue {
		b.deliver(w.sink, e)
	}
}

func (b *Bus) deliver(sink Sink, e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event sink panicked", "sink", sink.Name(), "type", e.Type, "panic", fmt.Sprint(r))
		}
	}()

	if err := sink.Handle(ctx, e); err != nil {
		b.logger.Warn("event sink failed", "sink", sink.Name(), "type", e.Type, "device_id", e.DeviceID, "error", err)
		return
	}
	b.logger.Debug("event delivered", "sink", sink.Name(), "type", e.Type)
}
