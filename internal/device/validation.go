package device

import (
	"fmt"
	"strings"
	"unicode"
)

// maxIDLength bounds device identities. Agents send UUIDs, so this is generous.
const maxIDLength = 128

// ValidateID checks that id is usable as a registry key and as part of a
// per-device file name.
//
// Returns:
//   - error: ErrInvalidID (wrapped with the reason), or nil if valid
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidID, maxIDLength)
	}
	// ':' delimits operator selector payloads.
	if strings.ContainsAny(id, `/\:`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: contains a reserved character", ErrInvalidID)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: contains control characters", ErrInvalidID)
		}
	}
	return nil
}
