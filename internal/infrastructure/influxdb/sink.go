package influxdb

import (
	"context"
	"time"

	"github.com/relaydesk/relaydesk-core/internal/event"
)

// Writer is the subset of Client the sink needs.
type Writer interface {
	WriteBattery(deviceID, model string, percent int, at time.Time)
	WriteActivity(deviceID, kind string, at time.Time)
}

// Sink records bus events as telemetry.
//
// Check-ins carrying a device snapshot write a battery point; every
// other event increments the device's activity series.
type Sink struct {
	w Writer
}

var _ event.Sink = (*Sink)(nil)

// NewSink creates a telemetry sink writing through w.
func NewSink(w Writer) *Sink {
	return &Sink{w: w}
}

// Name implements event.Sink.
func (s *Sink) Name() string { return "influxdb" }

// Handle implements event.Sink. Writes are batched, so it never fails.
func (s *Sink) Handle(_ context.Context, e event.Event) error {
	at := e.Time
	if at.IsZero() {
		at = time.Now()
	}

	switch e.Type {
	case event.DeviceConnected, event.DeviceCheckedIn:
		if e.Device != nil {
			s.w.WriteBattery(e.DeviceID, e.Device.Model, e.Device.Battery, at)
		}
	case event.DeviceEvicted:
		// Absence is visible as a gap in the battery series.
	default:
		s.w.WriteActivity(e.DeviceID, string(e.Type), at)
	}
	return nil
}
