// Package form stores HTML form submissions relayed by handsets.
//
// Each device keeps only its latest submission, written verbatim as a JSON
// object to <id>.json in the storage directory.
package form

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/relaydesk/relaydesk-core/internal/device"
	"github.com/relaydesk/relaydesk-core/internal/infrastructure/filestore"
)

// Fields is a submission as received: field name to raw JSON value.
type Fields map[string]any

// Store persists the latest form submission per device.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(deviceID string) string {
	return filepath.Join(s.dir, deviceID+".json")
}

// Save replaces deviceID's stored submission with fields.
func (s *Store) Save(ctx context.Context, deviceID string, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := device.ValidateID(deviceID); err != nil {
		return err
	}
	if fields == nil {
		fields = Fields{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := filestore.WriteJSON(s.path(deviceID), fields); err != nil {
		return fmt.Errorf("persisting form for %s: %w", deviceID, err)
	}
	return nil
}

// Load returns deviceID's stored submission, or nil when none exists.
func (s *Store) Load(ctx context.Context, deviceID string) (Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := device.ValidateID(deviceID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var fields Fields
	if _, err := filestore.ReadJSON(s.path(deviceID), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
