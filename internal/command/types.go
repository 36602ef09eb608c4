package command

import (
	"fmt"
	"strings"
)

// Kind identifies the command variant. The value is the wire "type" field.
type Kind string

const (
	// KindSendSMS asks the handset to send a text message from a SIM slot.
	KindSendSMS Kind = "send_sms"

	// KindForward switches inbound message forwarding for a SIM slot.
	KindForward Kind = "sms_forward"
)

// Forwarding actions.
const (
	ForwardOn  = "on"
	ForwardOff = "off"
)

// Command is a pending instruction for one handset.
//
// Only the fields relevant to Type are set:
//   - send_sms: SIM, To, Message
//   - sms_forward: SIM, Action, and Number when Action is "on"
type Command struct {
	Type    Kind   `json:"type"`
	SIM     int    `json:"sim"`
	To      string `json:"to,omitempty"`
	Message string `json:"message,omitempty"`
	Action  string `json:"action,omitempty"`
	Number  string `json:"number,omitempty"`
}

// SendSMS builds a send_sms command.
func SendSMS(sim int, to, message string) Command {
	return Command{Type: KindSendSMS, SIM: sim, To: to, Message: message}
}

// EnableForwarding builds an sms_forward "on" command that forwards inbound
// messages on sim to number.
func EnableForwarding(sim int, number string) Command {
	return Command{Type: KindForward, Action: ForwardOn, SIM: sim, Number: number}
}

// DisableForwarding builds an sms_forward "off" command.
func DisableForwarding(sim int) Command {
	return Command{Type: KindForward, Action: ForwardOff, SIM: sim}
}

// Validate checks that the command is well formed for its kind.
func (c Command) Validate() error {
	if c.SIM != 1 && c.SIM != 2 {
		return fmt.Errorf("%w: sim must be 1 or 2, got %d", ErrInvalidCommand, c.SIM)
	}

	switch c.Type {
	case KindSendSMS:
		if strings.TrimSpace(c.To) == "" {
			return fmt.Errorf("%w: send_sms requires a destination", ErrInvalidCommand)
		}
		if c.Message == "" {
			return fmt.Errorf("%w: send_sms requires a message", ErrInvalidCommand)
		}
	case KindForward:
		switch c.Action {
		case ForwardOn:
			if strings.TrimSpace(c.Number) == "" {
				return fmt.Errorf("%w: forwarding on requires a number", ErrInvalidCommand)
			}
		case ForwardOff:
		default:
			return fmt.Errorf("%w: forwarding action must be on or off, got %q", ErrInvalidCommand, c.Action)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, c.Type)
	}
	return nil
}

// Summary is a short human description used in logs and operator notices.
func (c Command) Summary() string {
	switch c.Type {
	case KindSendSMS:
		return fmt.Sprintf("send SMS from SIM %d to %s", c.SIM, c.To)
	case KindForward:
		if c.Action == ForwardOn {
			return fmt.Sprintf("forward SIM %d to %s", c.SIM, c.Number)
		}
		return fmt.Sprintf("stop forwarding SIM %d", c.SIM)
	default:
		return string(c.Type)
	}
}
