package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/relaydesk/relaydesk-core/internal/device"
	"github.com/relaydesk/relaydesk-core/internal/message"
	"github.com/relaydesk/relaydesk-core/internal/session"
)

// Root commands, matched case-insensitively against the whole input.
const (
	cmdStart   = "/start"
	cmdDevices = "connected devices"
	cmdSend    = "send sms"
	cmdForward = "sms forward"
	cmdReceive = "receive sms"
)

const menuPrefix = "menu:"

func menuPayload(cmd string) string {
	return menuPrefix + cmd
}

// DefaultDebounce is the minimum gap between two text inputs from one operator.
const DefaultDebounce = 500 * time.Millisecond

// MessageReader is the subset of message.Store the console needs.
type MessageReader interface {
	Slice(ctx context.Context, deviceID string, offset, limit int) (message.Page, error)
}

// Logger defines the logging interface used by the Console.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps holds the console's collaborators and settings.
type Deps struct {
	Registry *device.Registry
	Engine   *session.Engine
	Messages MessageReader
	Channel  Channel

	// AdminIDs is the allow-list of operator chat identities. Notifications
	// are broadcast to every entry.
	AdminIDs []string

	// Debounce is the minimum gap between text inputs per operator.
	// Negative disables debouncing; zero uses DefaultDebounce.
	Debounce time.Duration

	PageSize  int
	TextLimit int

	// Developer, when set, is appended as a signature to some replies.
	Developer string

	// Location is used to format message timestamps. Defaults to time.Local.
	Location *time.Location

	Logger Logger
}

// Console interprets operator input and renders replies onto a Channel.
type Console struct {
	registry *device.Registry
	engine   *session.Engine
	messages MessageReader
	channel  Channel

	admins  []string
	allowed map[string]struct{}

	debounce  *debouncer
	pageSize  int
	textLimit int
	developer string
	loc       *time.Location
	logger    Logger
}

// New creates a Console.
func New(deps Deps) *Console {
	c := &Console{
		registry:  deps.Registry,
		engine:    deps.Engine,
		messages:  deps.Messages,
		channel:   deps.Channel,
		allowed:   make(map[string]struct{}, len(deps.AdminIDs)),
		pageSize:  deps.PageSize,
		textLimit: deps.TextLimit,
		developer: deps.Developer,
		loc:       deps.Location,
		logger:    deps.Logger,
	}
	for _, id := range deps.AdminIDs {
		if _, dup := c.allowed[id]; dup || id == "" {
			continue
		}
		c.allowed[id] = struct{}{}
		c.admins = append(c.admins, id)
	}

	interval := deps.Debounce
	if interval == 0 {
		interval = DefaultDebounce
	}
	c.debounce = newDebouncer(interval)

	if c.pageSize <= 0 {
		c.pageSize = message.DefaultPageSize
	}
	if c.textLimit <= 0 {
		c.textLimit = session.DefaultTextLimit
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	return c
}

// Allowed reports whether chatID is on the operator allow-list.
func (c *Console) Allowed(chatID string) bool {
	_, ok := c.allowed[chatID]
	return ok
}

// Admins returns the allow-listed operator identities in configured order.
func (c *Console) Admins() []string {
	out := make([]string, len(c.admins))
	copy(out, c.admins)
	return out
}

// HandleText processes a free-text message from chatID.
//
// Input feeds the operator's live session first. When no session consumes
// it, the text is matched against the root commands; anything else is
// ignored. Inputs arriving faster than the debounce interval are dropped.
func (c *Console) HandleText(ctx context.Context, chatID, text string) error {
	if !c.Allowed(chatID) {
		c.logger.Warn("rejected operator input", "chat_id", chatID)
		return c.send(ctx, chatID, Message{Text: textPermissionDenied})
	}
	if !c.debounce.Allow(chatID) {
		c.logger.Debug("operator input debounced", "chat_id", chatID)
		return nil
	}

	res, err := c.engine.HandleText(ctx, chatID, text)
	if err != nil {
		c.logger.Error("session commit failed", "chat_id", chatID, "error", err)
		return errors.Join(err, c.send(ctx, chatID, Message{Text: textQueueFailed}))
	}
	if res.Outcome != session.OutcomeNone {
		c.logger.Debug("session advanced", "chat_id", chatID, "outcome", res.Outcome)
		if msg, ok := c.renderResult(res); ok {
			return c.send(ctx, chatID, msg)
		}
		return nil
	}

	if _, err := c.runCommand(ctx, chatID, "", text); err != nil {
		return err
	}
	return nil
}

// HandleSelector processes a button press from chatID on messageID.
//
// It returns a short notice for the platform to show as a toast, or "" when
// the reply was delivered as a message.
func (c *Console) HandleSelector(ctx context.Context, chatID, messageID, payload string) (string, error) {
	if !c.Allowed(chatID) {
		c.logger.Warn("rejected operator action", "chat_id", chatID)
		return textNotAllowed, nil
	}

	if cmd, ok := strings.CutPrefix(payload, menuPrefix); ok {
		handled, err := c.runCommand(ctx, chatID, messageID, cmd)
		if !handled {
			return textUnknownAction, err
		}
		return "", err
	}

	sel, err := session.ParseSelector(payload)
	if err != nil {
		c.logger.Debug("ignoring malformed selector", "chat_id", chatID, "error", err)
		return textUnknownAction, nil
	}

	switch sel.Action {
	case session.ActionPage:
		return c.showPage(ctx, chatID, messageID, sel)

	case session.ActionBack:
		if c.registry.Len() == 0 {
			return "", c.show(ctx, chatID, messageID, Message{Text: textNoDevices})
		}
		res := c.engine.Begin(chatID, sel.Flow)
		msg, _ := c.renderResult(res)
		return "", c.show(ctx, chatID, messageID, msg)
	}

	res, err := c.engine.HandleSelector(ctx, chatID, sel)
	if err != nil {
		c.logger.Error("session commit failed", "chat_id", chatID, "error", err)
		return "", errors.Join(err, c.send(ctx, chatID, Message{Text: textQueueFailed}))
	}
	c.logger.Debug("selector applied", "chat_id", chatID, "selector", payload, "outcome", res.Outcome)

	switch res.Outcome {
	case session.OutcomeTargetUnavailable:
		return textUnavailable, nil
	case session.OutcomeChooseSlot, session.OutcomeChooseMode:
		msg, _ := c.renderResult(res)
		return "", c.show(ctx, chatID, messageID, msg)
	}
	if msg, ok := c.renderResult(res); ok {
		return "", c.send(ctx, chatID, msg)
	}
	return "", nil
}

// runCommand executes a root command. It reports false when text is not one.
func (c *Console) runCommand(ctx context.Context, chatID, messageID, text string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case cmdStart:
		return true, c.send(ctx, chatID, menu())
	case cmdDevices:
		return true, c.send(ctx, chatID, c.deviceList())
	case cmdSend:
		return true, c.beginFlow(ctx, chatID, session.FlowSend)
	case cmdForward:
		return true, c.beginFlow(ctx, chatID, session.FlowForward)
	case cmdReceive:
		return true, c.receive(ctx, chatID)
	default:
		return false, nil
	}
}

func (c *Console) beginFlow(ctx context.Context, chatID string, flow session.Flow) error {
	if c.registry.Len() == 0 {
		c.engine.Cancel(chatID)
		return c.send(ctx, chatID, Message{Text: textNoDevices})
	}
	res := c.engine.Begin(chatID, flow)
	msg, _ := c.renderResult(res)
	return c.send(ctx, chatID, msg)
}

// receive sends the first page of every registered device's message log.
func (c *Console) receive(ctx context.Context, chatID string) error {
	devices := c.registry.List()
	if len(devices) == 0 {
		return c.send(ctx, chatID, Message{Text: textNoDevices})
	}

	var errs []error
	for _, d := range devices {
		page, err := c.messages.Slice(ctx, d.ID, 0, c.pageSize)
		if err != nil {
			errs = append(errs, fmt.Errorf("reading messages for %s: %w", d.ID, err))
			continue
		}
		msg := Message{Text: "📭 No SMS for " + d.DisplayName()}
		if page.Total > 0 {
			msg = c.renderPage(d.ID, page, true)
		}
		if err := c.send(ctx, chatID, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Console) showPage(ctx context.Context, chatID, messageID string, sel session.Selector) (string, error) {
	page, err := c.messages.Slice(ctx, sel.DeviceID, sel.Offset, c.pageSize)
	if err != nil {
		return "", fmt.Errorf("reading messages for %s: %w", sel.DeviceID, err)
	}
	if len(page.Items) == 0 {
		return textNoMore, nil
	}
	return "", c.show(ctx, chatID, messageID, c.renderPage(sel.DeviceID, page, false))
}

// show replaces messageID with msg, falling back to a new message when
// there is nothing to edit or the edit fails.
func (c *Console) show(ctx context.Context, chatID, messageID string, msg Message) error {
	if messageID != "" {
		err := c.channel.Edit(ctx, messageID, msg)
		if err == nil {
			return nil
		}
		c.logger.Debug("edit failed, sending instead", "chat_id", chatID, "message_id", messageID, "error", err)
	}
	return c.send(ctx, chatID, msg)
}

func (c *Console) send(ctx context.Context, chatID string, msg Message) error {
	if _, err := c.channel.Send(ctx, chatID, msg); err != nil {
		c.logger.Warn("channel send failed", "chat_id", chatID, "error", err)
		return fmt.Errorf("sending to %s: %w", chatID, err)
	}
	return nil
}
