package console

import (
	"context"
	"fmt"
	"sync"
)

// Button is a clickable action. Value is the payload returned to
// HandleSelector when the button is pressed.
type Button struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Message is a chat message: markdown text with optional rows of buttons.
type Message struct {
	Text    string     `json:"text"`
	Buttons [][]Button `json:"buttons,omitempty"`
}

// Channel delivers messages to operators.
type Channel interface {
	// Send posts msg to chatID and returns the platform message id.
	Send(ctx context.Context, chatID string, msg Message) (string, error)

	// Edit replaces the content of a previously sent message.
	Edit(ctx context.Context, messageID string, msg Message) error
}

// LogChannel is a Channel that writes messages to a logger. It stands in
// for a chat platform when none is configured.
type LogChannel struct {
	Logger Logger

	mu   sync.Mutex
	next int
}

// Send logs msg and returns a synthetic message id.
func (l *LogChannel) Send(_ context.Context, chatID string, msg Message) (string, error) {
	l.mu.Lock()
	l.next++
	id := fmt.Sprintf("log-%d", l.next)
	l.mu.Unlock()

	if l.Logger != nil {
		l.Logger.Info("operator message", "chat_id", chatID, "message_id", id, "text", msg.Text, "buttons", len(msg.Buttons))
	}
	return id, nil
}

// Edit logs msg as a replacement for messageID.
func (l *LogChannel) Edit(_ context.Context, messageID string, msg Message) error {
	if l.Logger != nil {
		l.Logger.Info("operator message edited", "message_id", messageID, "text", msg.Text)
	}
	return nil
}
