package session

import "errors"

var (
	// ErrInvalidSelector is returned when a selector payload cannot be decoded.
	ErrInvalidSelector = errors.New("session: invalid selector")

	// ErrUnhandledSelector is returned when a selector does not drive a session
	// (pagination, navigation) and must be handled by the caller.
	ErrUnhandledSelector = errors.New("session: selector not handled by engine")
)
