package feishu

import (
	"context"
	"fmt"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/relaydesk/relaydesk-core/internal/console"
)

const defaultBaseURL = "https://open.feishu.cn"

// Config holds the bot credentials.
type Config struct {
	AppID     string
	AppSecret string

	// BaseURL is the open platform endpoint. Defaults to Feishu; set
	// https://open.larksuite.com for Lark.
	BaseURL string
}

// Logger defines the logging interface used by the Bridge.
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

// messageAPI is the subset of the IM message service the bridge calls.
type messageAPI interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
	Patch(ctx context.Context, req *larkim.PatchMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.PatchMessageResp, error)
}

// Bridge is a console.Channel backed by a Feishu bot.
type Bridge struct {
	cfg      Config
	messages messageAPI
	logger   Logger
}

var _ console.Channel = (*Bridge)(nil)

// New creates a bridge for the bot described by cfg.
func New(cfg Config) (*Bridge, error) {
	if strings.TrimSpace(cfg.AppID) == "" || strings.TrimSpace(cfg.AppSecret) == "" {
		return nil, ErrNotConfigured
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	opts := []lark.ClientOptionFunc{
		lark.WithLogLevel(larkcore.LogLevelError),
	}
	if cfg.BaseURL != lark.FeishuBaseUrl {
		opts = append(opts, lark.WithOpenBaseUrl(cfg.BaseURL))
	}
	client := lark.NewClient(cfg.AppID, cfg.AppSecret, opts...)

	return &Bridge{
		cfg:      cfg,
		messages: client.Im.V1.Message,
		logger:   noopLogger{},
	}, nil
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.logger = logger
}

// Send posts msg to chatID as an interactive card and returns its message id.
func (b *Bridge) Send(ctx context.Context, chatID string, msg console.Message) (string, error) {
	content, err := renderCard(msg)
	if err != nil {
		return "", err
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(newCreateBody(chatID, content)).
		Build()

	resp, err := b.messages.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("feishu: send message request failed: %w", err)
	}
	if resp == nil || resp.ApiResp == nil {
		return "", ErrEmptyResponse
	}
	if err := ensureSDKSuccess("send message", resp.Success(), resp.Code, resp.Msg, resp.RequestId()); err != nil {
		return "", err
	}
	if resp.Data == nil {
		return "", nil
	}
	return larkcore.StringValue(resp.Data.MessageId), nil
}

// Edit replaces the card of a previously sent message.
func (b *Bridge) Edit(ctx context.Context, messageID string, msg console.Message) error {
	content, err := renderCard(msg)
	if err != nil {
		return err
	}

	req := larkim.NewPatchMessageReqBuilder().
		MessageId(messageID).
		Body(newPatchBody(content)).
		Build()

	resp, err := b.messages.Patch(ctx, req)
	if err != nil {
		return fmt.Errorf("feishu: patch message request failed: %w", err)
	}
	if resp == nil || resp.ApiResp == nil {
		return ErrEmptyResponse
	}
	return ensureSDKSuccess("patch message", resp.Success(), resp.Code, resp.Msg, resp.RequestId())
}

// newCreateBody addresses an interactive card to a chat.
func newCreateBody(chatID, content string) *larkim.CreateMessageReqBody {
	return larkim.NewCreateMessageReqBodyBuilder().
		ReceiveId(chatID).
		MsgType(larkim.MsgTypeInteractive).
		Content(content).
		Build()
}

func newPatchBody(content string) *larkim.PatchMessageReqBody {
	return larkim.NewPatchMessageReqBodyBuilder().
		Content(content).
		Build()
}

func ensureSDKSuccess(action string, ok bool, code int, msg, logID string) error {
	if ok {
		return nil
	}
	if strings.TrimSpace(logID) == "" {
		return fmt.Errorf("feishu: %s failed code=%d msg=%s", action, code, msg)
	}
	return fmt.Errorf("feishu: %s failed code=%d msg=%s log_id=%s", action, code, msg, logID)
}
