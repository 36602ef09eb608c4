package command

import "errors"

var (
	// ErrInvalidCommand is returned when a command fails validation.
	ErrInvalidCommand = errors.New("command: invalid")

	// ErrUnknownKind is returned for a command type the handsets do not understand.
	ErrUnknownKind = errors.New("command: unknown kind")
)
