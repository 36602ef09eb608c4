package message

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/relaydesk/relaydesk-core/internal/device"
	"github.com/relaydesk/relaydesk-core/internal/infrastructure/filestore"
)

const (
	// DefaultCap is the number of messages kept per device.
	DefaultCap = 500

	// DefaultPageSize is used when Slice is called with a non-positive limit.
	DefaultPageSize = 20
)

// Record is one inbound message as reported by a handset.
type Record struct {
	From      string `json:"from"`
	Body      string `json:"body"`
	SIM       int    `json:"sim"`
	Battery   int    `json:"battery"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// Page is one window of a device's message log.
type Page struct {
	Items  []Record `json:"items"`
	Total  int      `json:"total"`
	Offset int      `json:"offset"`
}

// End returns the 1-based index of the last item on the page.
func (p Page) End() int {
	return p.Offset + len(p.Items)
}

// HasNext reports whether messages exist beyond this page.
func (p Page) HasNext() bool {
	return p.End() < p.Total
}

// Logger defines the logging interface used by the Store.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store persists message logs, one file per device, under dir.
// One mutex covers all devices; each Append is a full read-modify-write.
type Store struct {
	mu     sync.Mutex
	dir    string
	cap    int
	logger Logger
}

// NewStore creates a store rooted at dir that keeps at most capacity
// messages per device. A non-positive capacity uses DefaultCap.
func NewStore(dir string, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Store{dir: dir, cap: capacity, logger: noopLogger{}}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

func (s *Store) path(deviceID string) string {
	return filepath.Join(s.dir, deviceID+"_sms.json")
}

// load reads deviceID's log, falling back to empty. Caller must hold mu.
func (s *Store) load(deviceID string) []Record {
	var list []Record
	if _, err := filestore.ReadJSON(s.path(deviceID), &list); err != nil {
		if errors.Is(err, filestore.ErrCorrupt) {
			s.logger.Warn("message log unreadable, treating as empty", "device_id", deviceID, "error", err)
		} else {
			s.logger.Error("reading message log failed", "device_id", deviceID, "error", err)
		}
		return nil
	}
	return list
}

// Append inserts rec at the head of deviceID's log and trims the log to
// capacity.
func (s *Store) Append(ctx context.Context, deviceID string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := device.ValidateID(deviceID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.load(deviceID)
	keep := len(current)
	if keep > s.cap-1 {
		keep = s.cap - 1
	}
	list := make([]Record, 0, keep+1)
	list = append(list, rec)
	list = append(list, current[:keep]...)

	if err := filestore.WriteJSON(s.path(deviceID), list); err != nil {
		return fmt.Errorf("persisting messages for %s: %w", deviceID, err)
	}
	return nil
}

// Slice returns up to limit messages starting at offset (0 = newest).
//
// An offset past the end yields no items but still reports Total. Negative
// offsets are treated as 0 and a non-positive limit as DefaultPageSize.
func (s *Store) Slice(ctx context.Context, deviceID string, offset, limit int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if err := device.ValidateID(deviceID); err != nil {
		return Page{}, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	s.mu.Lock()
	list := s.load(deviceID)
	s.mu.Unlock()

	page := Page{Items: []Record{}, Total: len(list), Offset: offset}
	if offset >= len(list) {
		return page, nil
	}
	if rest := len(list) - offset; limit > rest {
		limit = rest
	}
	page.Items = list[offset : offset+limit]
	return page, nil
}

// Count returns the number of stored messages for deviceID.
func (s *Store) Count(ctx context.Context, deviceID string) (int, error) {
	page, err := s.Slice(ctx, deviceID, 0, 1)
	if err != nil {
		return 0, err
	}
	return page.Total, nil
}
