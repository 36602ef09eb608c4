package command

import (
	"context"
	"fmt"

	"github.com/relaydesk/relaydesk-core/internal/device"
)

// Hooks are optional callbacks fired after a queue change has been persisted.
// They run on the caller's goroutine and must not block.
type Hooks struct {
	Enqueued  func(deviceID string, cmd Command)
	Delivered func(deviceID string, cmds []Command)
}

// Service is the command queue front door. It validates input before it
// reaches the Store and reports queue changes through Hooks.
type Service struct {
	store  *Store
	hooks  Hooks
	logger Logger
}

// NewService creates a Service over store.
func NewService(store *Store) *Service {
	return &Service{store: store, logger: noopLogger{}}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetHooks installs queue change callbacks.
func (s *Service) SetHooks(h Hooks) {
	s.hooks = h
}

// Enqueue appends cmd to deviceID's queue.
//
// Parameters:
//   - ctx: Checked for cancellation before the write
//   - deviceID: Target device identity
//   - cmd: Command to queue; must pass Validate
//
// Returns:
//   - error: device.ErrInvalidID, ErrInvalidCommand, ErrUnknownKind, or a storage error
func (s *Service) Enqueue(ctx context.Context, deviceID string, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := device.ValidateID(deviceID); err != nil {
		return err
	}
	if err := cmd.Validate(); err != nil {
		return err
	}

	if err := s.store.Append(deviceID, cmd); err != nil {
		return fmt.Errorf("enqueue for %s: %w", deviceID, err)
	}

	s.logger.Info("command queued", "device_id", deviceID, "type", cmd.Type, "sim", cmd.SIM)
	if s.hooks.Enqueued != nil {
		s.hooks.Enqueued(deviceID, cmd)
	}
	return nil
}

// Drain removes and returns every pending command for deviceID in the order
// they were queued. The result is never nil, so it encodes as [] on the wire.
func (s *Service) Drain(ctx context.Context, deviceID string) ([]Command, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := device.ValidateID(deviceID); err != nil {
		return nil, err
	}

	cmds, err := s.store.Take(deviceID)
	if err != nil {
		return nil, fmt.Errorf("drain for %s: %w", deviceID, err)
	}
	if len(cmds) == 0 {
		return []Command{}, nil
	}

	s.logger.Info("commands delivered", "device_id", deviceID, "count", len(cmds))
	if s.hooks.Delivered != nil {
		s.hooks.Delivered(deviceID, cmds)
	}
	return cmds, nil
}

// Pending returns deviceID's queue without draining it.
func (s *Service) Pending(ctx context.Context, deviceID string) ([]Command, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := device.ValidateID(deviceID); err != nil {
		return nil, err
	}
	return s.store.Peek(deviceID), nil
}

// Depths returns the number of pending commands per device.
func (s *Service) Depths() map[string]int {
	return s.store.Depths()
}
