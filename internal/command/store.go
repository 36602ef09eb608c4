package command

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/relaydesk/relaydesk-core/internal/infrastructure/filestore"
)

// QueueFile is the name of the queue document inside the storage directory.
const QueueFile = "commandQueue.json"

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store is the durable queue: a map of device id to pending commands,
// kept in one JSON file.
//
// Every mutation reads the whole file, changes it in memory and atomically
// replaces it, all under mu. The file is the only state; nothing is cached
// between calls, so external edits to the file are picked up.
type Store struct {
	mu     sync.Mutex
	path   string
	logger Logger
}

// NewStore creates a store backed by dir/commandQueue.json.
// The file is created on first write.
func NewStore(dir string) *Store {
	return &Store{
		path:   filepath.Join(dir, QueueFile),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// load reads the queue map. Absent, blank and corrupt files all yield an
// empty map; only corruption is logged. Caller must hold mu.
func (s *Store) load() map[string][]Command {
	queues := make(map[string][]Command)
	if _, err := filestore.ReadJSON(s.path, &queues); err != nil {
		if errors.Is(err, filestore.ErrCorrupt) {
			s.logger.Warn("command queue file unreadable, starting empty", "path", s.path, "error", err)
		} else {
			s.logger.Error("reading command queue failed, starting empty", "path", s.path, "error", err)
		}
		return make(map[string][]Command)
	}
	return queues
}

// save atomically replaces the queue file. Caller must hold mu.
func (s *Store) save(queues map[string][]Command) error {
	if err := filestore.WriteJSON(s.path, queues); err != nil {
		return fmt.Errorf("persisting command queue: %w", err)
	}
	return nil
}

// Append adds cmd to the tail of id's queue.
func (s *Store) Append(id string, cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queues := s.load()
	queues[id] = append(queues[id], cmd)
	return s.save(queues)
}

// Take removes and returns id's whole queue in FIFO order.
// An empty queue returns nil without touching the file.
func (s *Store) Take(id string) ([]Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queues := s.load()
	pending, ok := queues[id]
	if !ok {
		return nil, nil
	}
	delete(queues, id)
	if err := s.save(queues); err != nil {
		return nil, err
	}
	return pending, nil
}

// Peek returns a copy of id's queue without removing it.
func (s *Store) Peek(id string) []Command {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.load()[id]
	out := make([]Command, len(pending))
	copy(out, pending)
	return out
}

// Depths returns the number of pending commands per device.
func (s *Store) Depths() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	queues := s.load()
	out := make(map[string]int, len(queues))
	for id, pending := range queues {
		out[id] = len(pending)
	}
	return out
}
