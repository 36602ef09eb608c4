package device

import "errors"

var (
	// ErrDeviceNotFound is returned by Registry.Lookup for an id with no
	// live record, including devices already evicted by the sweeper.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidID is returned when a device identity is empty or unsafe
	// to use as part of a file name.
	ErrInvalidID = errors.New("device: invalid id")
)
