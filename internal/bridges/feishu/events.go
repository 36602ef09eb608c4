package feishu

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher/callback"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
)

// Handler receives operator input. console.Console implements it.
type Handler interface {
	HandleText(ctx context.Context, chatID, text string) error
	HandleSelector(ctx context.Context, chatID, messageID, payload string) (string, error)
}

// Run holds the WebSocket event connection open and dispatches inbound
// events to h until ctx is cancelled. The SDK reconnects on its own.
func (b *Bridge) Run(ctx context.Context, h Handler) error {
	handler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, ev *larkim.P2MessageReceiveV1) error {
			return b.onMessage(ctx, h, ev)
		}).
		OnP2CardActionTrigger(func(ctx context.Context, ev *callback.CardActionTriggerEvent) (*callback.CardActionTriggerResponse, error) {
			return b.onCardAction(ctx, h, ev)
		})

	cli := larkws.NewClient(b.cfg.AppID, b.cfg.AppSecret,
		larkws.WithEventHandler(handler),
		larkws.WithDomain(b.cfg.BaseURL),
		larkws.WithLogLevel(larkcore.LogLevelError),
	)

	b.logger.Info("feishu event connection starting", "base_url", b.cfg.BaseURL)

	// Start blocks for the life of the connection and does not observe
	// ctx cancellation once connected.
	errCh := make(chan error, 1)
	go func() { errCh <- cli.Start(ctx) }()

	select {
	case <-ctx.Done():
		b.logger.Info("feishu event connection stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

type textContent struct {
	Text string `json:"text"`
}

func (b *Bridge) onMessage(ctx context.Context, h Handler, ev *larkim.P2MessageReceiveV1) error {
	if ev == nil || ev.Event == nil || ev.Event.Message == nil {
		return nil
	}
	m := ev.Event.Message

	chatID := larkcore.StringValue(m.ChatId)
	if larkcore.StringValue(m.MessageType) != larkim.MsgTypeText {
		b.logger.Debug("ignoring non-text message", "chat_id", chatID, "type", larkcore.StringValue(m.MessageType))
		return nil
	}

	var content textContent
	if err := json.Unmarshal([]byte(larkcore.StringValue(m.Content)), &content); err != nil {
		b.logger.Warn("undecodable message content", "chat_id", chatID, "error", err)
		return nil
	}
	text := stripMentions(content.Text)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if err := h.HandleText(ctx, chatID, text); err != nil {
		b.logger.Warn("operator text handling failed", "chat_id", chatID, "error", err)
	}
	return nil
}

func (b *Bridge) onCardAction(ctx context.Context, h Handler, ev *callback.CardActionTriggerEvent) (*callback.CardActionTriggerResponse, error) {
	if ev == nil || ev.Event == nil || ev.Event.Action == nil || ev.Event.Context == nil {
		return nil, nil
	}

	payload, _ := ev.Event.Action.Value[payloadKey].(string)
	chatID := ev.Event.Context.OpenChatID
	messageID := ev.Event.Context.OpenMessageID

	notice, err := h.HandleSelector(ctx, chatID, messageID, payload)
	if err != nil {
		b.logger.Warn("operator action handling failed", "chat_id", chatID, "payload", payload, "error", err)
	}
	if notice == "" {
		return nil, nil
	}
	return &callback.CardActionTriggerResponse{
		Toast: &callback.Toast{Type: "info", Content: notice},
	}, nil
}

// mentionPattern matches the "@_user_N" placeholders Feishu inserts for
// mentions in group chats.
var mentionPattern = regexp.MustCompile(`@_(user_\d+|all)\s*`)

// stripMentions removes mention placeholders and leaves the rest of the
// text, whitespace included, as the operator typed it.
func stripMentions(text string) string {
	return mentionPattern.ReplaceAllString(text, "")
}
