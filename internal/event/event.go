package event

import (
	"time"

	"github.com/relaydesk/relaydesk-core/internal/command"
	"github.com/relaydesk/relaydesk-core/internal/device"
	"github.com/relaydesk/relaydesk-core/internal/form"
	"github.com/relaydesk/relaydesk-core/internal/message"
)

// Type names an event. Values double as MQTT topic segments and WebSocket
// channel names.
type Type string

const (
	// DeviceConnected fires on the first check-in of a device since it was
	// last evicted.
	DeviceConnected Type = "device.connected"

	// DeviceCheckedIn fires on every check-in.
	DeviceCheckedIn Type = "device.checked_in"

	// DeviceEvicted fires when the sweeper drops a stale device.
	DeviceEvicted Type = "device.evicted"

	MessageReceived  Type = "message.received"
	SendReported     Type = "send.outcome"
	FormSubmitted    Type = "form.submitted"
	CommandEnqueued  Type = "command.enqueued"
	CommandDelivered Type = "command.delivered"
)

// Event is one unit of device-channel activity.
type Event struct {
	Type     Type      `json:"type"`
	DeviceID string    `json:"device_id"`
	Time     time.Time `json:"timestamp"`

	// Device is the registry snapshot at publish time. It is nil for
	// devices that are not (or no longer) registered.
	Device *device.Device `json:"device,omitempty"`

	// Exactly one of the payload fields is set, matching Type.
	Message  *message.Record   `json:"message,omitempty"`
	Send     *SendStatus       `json:"send,omitempty"`
	Form     form.Fields       `json:"form,omitempty"`
	Commands []command.Command `json:"commands,omitempty"`
}

// SendStatus is a handset's report on a send_sms command.
type SendStatus struct {
	To      string `json:"to"`
	Message string `json:"message"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Sent reports whether the handset confirmed delivery to the carrier.
func (s SendStatus) Sent() bool {
	return s.Status == "sent"
}

// DisplayName returns the device model, falling back to the identity.
func (e Event) DisplayName() string {
	if e.Device != nil {
		return e.Device.DisplayName()
	}
	return e.DeviceID
}
