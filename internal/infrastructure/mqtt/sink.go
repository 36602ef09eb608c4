package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/relaydesk/relaydesk-core/internal/event"
)

// Publisher is the subset of Client the sink needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Sink mirrors bus events onto the broker.
//
// Every event is published to Topics.Event. Connect, check-in and eviction
// events additionally update the device's retained presence topic.
type Sink struct {
	pub    Publisher
	topics Topics
	qos    byte
}

var _ event.Sink = (*Sink)(nil)

// NewSink creates a sink publishing through pub.
func NewSink(pub Publisher, topics Topics, qos byte) *Sink {
	return &Sink{pub: pub, topics: topics, qos: qos}
}

// Name implements event.Sink.
func (s *Sink) Name() string { return "mqtt" }

// PresencePayload is the retained body on a presence topic.
type PresencePayload struct {
	DeviceID  string `json:"device_id"`
	Online    bool   `json:"online"`
	Model     string `json:"model,omitempty"`
	Battery   int    `json:"battery,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Handle implements event.Sink.
func (s *Sink) Handle(_ context.Context, e event.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", e.Type, err)
	}
	if err := s.pub.Publish(s.topics.Event(e.Type, e.DeviceID), payload, s.qos, false); err != nil {
		return err
	}

	switch e.Type {
	case event.DeviceConnected, event.DeviceCheckedIn:
		return s.presence(e, true)
	case event.DeviceEvicted:
		return s.presence(e, false)
	default:
		return nil
	}
}

func (s *Sink) presence(e event.Event, online bool) error {
	p := PresencePayload{
		DeviceID:  e.DeviceID,
		Online:    online,
		Timestamp: e.Time.UTC().Format(time.RFC3339),
	}
	if e.Device != nil {
		p.Model = e.Device.Model
		p.Battery = e.Device.Battery
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding presence: %w", err)
	}
	return s.pub.Publish(s.topics.Presence(e.DeviceID), data, s.qos, true)
}
