package audit

import (
	"context"

	"github.com/relaydesk/relaydesk-core/internal/event"
)

// Entry sources.
const (
	SourceDevice   = "device"
	SourceOperator = "operator"
	SourceSystem   = "system"
)

// Sink writes one audit entry per event.
type Sink struct {
	repo Repository
}

var _ event.Sink = (*Sink)(nil)

// NewSink creates an event sink that records into repo.
func NewSink(repo Repository) *Sink {
	return &Sink{repo: repo}
}

// Name implements event.Sink.
func (s *Sink) Name() string { return "audit" }

// Handle implements event.Sink.
func (s *Sink) Handle(ctx context.Context, e event.Event) error {
	entry := EntryFor(e)
	return s.repo.Create(ctx, &entry)
}

// EntryFor maps an event to its audit entry. Message bodies and form
// values are not copied; the entry records their shape only.
func EntryFor(e event.Event) Entry {
	entry := Entry{
		Action:    string(e.Type),
		DeviceID:  e.DeviceID,
		Source:    SourceDevice,
		CreatedAt: e.Time,
		Details:   map[string]any{},
	}

	if e.Device != nil {
		entry.Details["model"] = e.Device.Model
		entry.Details["battery"] = e.Device.Battery
	}

	switch e.Type {
	case event.DeviceEvicted:
		entry.Source = SourceSystem
	case event.MessageReceived:
		if e.Message != nil {
			entry.Details["from"] = e.Message.From
			entry.Details["sim"] = e.Message.SIM
			entry.Details["length"] = len([]rune(e.Message.Body))
		}
	case event.SendReported:
		if e.Send != nil {
			entry.Details["to"] = e.Send.To
			entry.Details["status"] = e.Send.Status
			if e.Send.Error != "" {
				entry.Details["error"] = e.Send.Error
			}
		}
	case event.FormSubmitted:
		entry.Details["fields"] = len(e.Form)
	case event.CommandEnqueued:
		entry.Source = SourceOperator
		fallthrough
	case event.CommandDelivered:
		summaries := make([]string, 0, len(e.Commands))
		for _, c := range e.Commands {
			summaries = append(summaries, c.Summary())
		}
		entry.Details["commands"] = summaries
	}

	if len(entry.Details) == 0 {
		entry.Details = nil
	}
	return entry
}
