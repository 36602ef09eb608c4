package console

import (
	"context"
	"errors"

	"github.com/relaydesk/relaydesk-core/internal/event"
)

// Name implements event.Sink.
func (c *Console) Name() string { return "console" }

// Handle implements event.Sink by broadcasting a notification for e to
// every operator. Event types without a notification are ignored.
func (c *Console) Handle(ctx context.Context, e event.Event) error {
	var msg Message
	switch e.Type {
	case event.DeviceConnected:
		msg = c.renderConnected(e)
	case event.MessageReceived:
		msg = c.renderIncoming(e)
	case event.SendReported:
		msg = c.renderSendStatus(e)
	case event.FormSubmitted:
		msg = c.renderForm(e)
	default:
		return nil
	}
	return c.Broadcast(ctx, msg)
}

// Broadcast sends msg to every allow-listed operator. Delivery continues
// past individual failures; all failures are returned joined.
func (c *Console) Broadcast(ctx context.Context, msg Message) error {
	var errs []error
	for _, id := range c.admins {
		if err := c.send(ctx, id, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
