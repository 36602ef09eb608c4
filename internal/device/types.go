package device

import "time"

// Attributes is the status a handset reports on every check-in.
// A check-in replaces all of them; fields are never merged.
type Attributes struct {
	Model   string `json:"model"`
	Battery int    `json:"battery"`
	SIM1    string `json:"sim1"`
	SIM2    string `json:"sim2"`
}

// Device is a registry snapshot of one handset.
type Device struct {
	ID string `json:"id"`
	Attributes
	LastSeen time.Time `json:"last_seen"`
}

// Online reports whether the device has been seen within window of now.
func (d Device) Online(now time.Time, window time.Duration) bool {
	return now.Sub(d.LastSeen) < window
}

// Slot returns the carrier label for SIM slot 1 or 2, or "" for any other slot.
func (d Device) Slot(n int) string {
	switch n {
	case 1:
		return d.SIM1
	case 2:
		return d.SIM2
	default:
		return ""
	}
}

// DisplayName returns the model, falling back to the identity.
func (d Device) DisplayName() string {
	if d.Model != "" {
		return d.Model
	}
	return d.ID
}
