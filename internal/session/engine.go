package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/relaydesk/relaydesk-core/internal/command"
)

// Default engine settings.
const (
	DefaultTTL       = 90 * time.Second
	DefaultTextLimit = 1000
)

// Stage is the step a session is waiting on.
type Stage string

const (
	StageAwaitingTarget Stage = "awaiting_target"
	StageAwaitingSlot   Stage = "awaiting_slot"
	StageAwaitingMode   Stage = "awaiting_mode"
	StageAwaitingNumber Stage = "awaiting_number"
	StageAwaitingText   Stage = "awaiting_text"
)

// Session is one operator's in-progress command.
type Session struct {
	Operator  string
	Flow      Flow
	Stage     Stage
	DeviceID  string
	SIM       int
	To        string
	ExpiresAt time.Time
}

// Outcome tells the caller what to show the operator.
type Outcome int

const (
	// OutcomeNone means the input was not consumed by a session and should be
	// treated as a top-level command.
	OutcomeNone Outcome = iota
	OutcomeChooseDevice
	OutcomeChooseSlot
	OutcomeChooseMode
	OutcomePromptNumber
	OutcomePromptText
	OutcomeInvalidNumber
	OutcomeEmptyText
	OutcomeCancelled
	OutcomeCommitted
	OutcomeTargetUnavailable
)

var outcomeNames = map[Outcome]string{
	OutcomeNone:              "none",
	OutcomeChooseDevice:      "choose_device",
	OutcomeChooseSlot:        "choose_slot",
	OutcomeChooseMode:        "choose_mode",
	OutcomePromptNumber:      "prompt_number",
	OutcomePromptText:        "prompt_text",
	OutcomeInvalidNumber:     "invalid_number",
	OutcomeEmptyText:         "empty_text",
	OutcomeCancelled:         "cancelled",
	OutcomeCommitted:         "committed",
	OutcomeTargetUnavailable: "target_unavailable",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is the effect of one operator input.
type Result struct {
	Outcome Outcome

	// Session is a snapshot of the session after the input. It is the zero
	// value when no session remains.
	Session Session

	// DeviceID is the device the input referred to.
	DeviceID string

	// Command is the queued command when Outcome is OutcomeCommitted.
	Command command.Command
}

// Registry is the subset of device.Registry the engine needs.
type Registry interface {
	Exists(id string) bool
}

// Enqueuer is the subset of command.Service the engine needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, deviceID string, cmd command.Command) error
}

// Logger defines the logging interface used by the Engine.
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

// Options configures an Engine. Zero values use the defaults.
type Options struct {
	TTL       time.Duration
	TextLimit int
}

// Engine owns every operator's session.
type Engine struct {
	mu       sync.Mutex
	sessions map[string]*Session

	registry  Registry
	queue     Enqueuer
	ttl       time.Duration
	textLimit int
	now       func() time.Time
	logger    Logger
}

// NewEngine creates an engine that validates targets against registry and
// commits commands to queue.
func NewEngine(registry Registry, queue Enqueuer, opts Options) *Engine {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.TextLimit <= 0 {
		opts.TextLimit = DefaultTextLimit
	}
	return &Engine{
		sessions:  make(map[string]*Session),
		registry:  registry,
		queue:     queue,
		ttl:       opts.TTL,
		textLimit: opts.TextLimit,
		now:       time.Now,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// SetClock replaces the time source. Intended for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Begin starts a new session for operator, discarding any previous one.
func (e *Engine) Begin(operator string, flow Flow) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := &Session{Operator: operator, Flow: flow, Stage: StageAwaitingTarget}
	e.put(s)
	return Result{Outcome: OutcomeChooseDevice, Session: *s}
}

// Cancel discards operator's session. It reports whether one existed.
func (e *Engine) Cancel(operator string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lookupLocked(operator) == nil {
		return false
	}
	delete(e.sessions, operator)
	return true
}

// Lookup returns operator's live session.
func (e *Engine) Lookup(operator string) (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.lookupLocked(operator)
	if s == nil {
		return Session{}, false
	}
	return *s, true
}

// Len returns the number of stored sessions, expired ones included until
// they are next looked up.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// HandleText feeds free-text input to operator's session.
//
// Returns OutcomeNone when there is no live session or the session is
// waiting for a selector, so the caller can interpret text as a command.
// A storage failure while committing returns an error and keeps the session.
func (e *Engine) HandleText(ctx context.Context, operator, text string) (Result, error) {
	e.mu.Lock()
	s := e.lookupLocked(operator)
	if s == nil {
		e.mu.Unlock()
		return Result{Outcome: OutcomeNone}, nil
	}

	if IsCancel(text) {
		delete(e.sessions, operator)
		e.mu.Unlock()
		return Result{Outcome: OutcomeCancelled, DeviceID: s.DeviceID}, nil
	}

	switch s.Stage {
	case StageAwaitingNumber:
		number, ok := SanitizePhone(text)
		if !ok {
			e.extend(s)
			snap := *s
			e.mu.Unlock()
			return Result{Outcome: OutcomeInvalidNumber, Session: snap, DeviceID: snap.DeviceID}, nil
		}
		if s.Flow == FlowForward {
			cmd := command.EnableForwarding(s.SIM, number)
			return e.commitLocked(ctx, s, cmd)
		}
		s.To = number
		s.Stage = StageAwaitingText
		e.extend(s)
		snap := *s
		e.mu.Unlock()
		return Result{Outcome: OutcomePromptText, Session: snap, DeviceID: snap.DeviceID}, nil

	case StageAwaitingText:
		// The body is queued verbatim. Only a zero-length input is refused,
		// since send_sms requires a message.
		body := truncateRunes(text, e.textLimit)
		if body == "" {
			e.extend(s)
			snap := *s
			e.mu.Unlock()
			return Result{Outcome: OutcomeEmptyText, Session: snap, DeviceID: snap.DeviceID}, nil
		}
		cmd := command.SendSMS(s.SIM, s.To, body)
		return e.commitLocked(ctx, s, cmd)

	default:
		e.mu.Unlock()
		return Result{Outcome: OutcomeNone}, nil
	}
}

// HandleSelector applies a device, slot or mode choice for operator.
//
// Every selector names its device, and the device must still be registered;
// otherwise OutcomeTargetUnavailable is returned and no session is created,
// changed or removed. Pagination and navigation selectors return
// ErrUnhandledSelector.
func (e *Engine) HandleSelector(ctx context.Context, operator string, sel Selector) (Result, error) {
	switch sel.Action {
	case ActionPickDevice, ActionPickSlot, ActionPickMode:
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnhandledSelector, sel.Action)
	}

	if !e.registry.Exists(sel.DeviceID) {
		return Result{Outcome: OutcomeTargetUnavailable, DeviceID: sel.DeviceID}, nil
	}

	e.mu.Lock()

	// Selectors carry the full path so far, so each one rebuilds the
	// session from scratch. A stale button replaces whatever was in
	// progress rather than mixing two flows.
	s := &Session{Operator: operator, Flow: sel.Flow, DeviceID: sel.DeviceID}

	switch sel.Action {
	case ActionPickDevice:
		s.Stage = StageAwaitingSlot
		e.put(s)
		snap := *s
		e.mu.Unlock()
		return Result{Outcome: OutcomeChooseSlot, Session: snap, DeviceID: sel.DeviceID}, nil

	case ActionPickSlot:
		s.SIM = sel.SIM
		outcome := OutcomePromptNumber
		s.Stage = StageAwaitingNumber
		if sel.Flow == FlowForward {
			outcome = OutcomeChooseMode
			s.Stage = StageAwaitingMode
		}
		e.put(s)
		snap := *s
		e.mu.Unlock()
		return Result{Outcome: outcome, Session: snap, DeviceID: sel.DeviceID}, nil

	default: // ActionPickMode
		s.Flow = FlowForward
		s.SIM = sel.SIM
		if sel.Enable {
			s.Stage = StageAwaitingNumber
			e.put(s)
			snap := *s
			e.mu.Unlock()
			return Result{Outcome: OutcomePromptNumber, Session: snap, DeviceID: sel.DeviceID}, nil
		}
		s.Stage = StageAwaitingMode
		e.put(s)
		return e.commitLocked(ctx, s, command.DisableForwarding(sel.SIM))
	}
}

// commitLocked enqueues cmd for s and removes the session. It is entered
// with mu held and releases it before touching the queue. If the device has
// vanished the session is dropped without enqueuing. If the enqueue fails
// the session is restored unless the operator has started a new one.
func (e *Engine) commitLocked(ctx context.Context, s *Session, cmd command.Command) (Result, error) {
	delete(e.sessions, s.Operator)
	snap := *s
	e.mu.Unlock()

	if !e.registry.Exists(snap.DeviceID) {
		e.logger.Info("session target vanished before commit", "operator", snap.Operator, "device_id", snap.DeviceID)
		return Result{Outcome: OutcomeTargetUnavailable, DeviceID: snap.DeviceID}, nil
	}

	if err := e.queue.Enqueue(ctx, snap.DeviceID, cmd); err != nil {
		e.mu.Lock()
		if _, taken := e.sessions[snap.Operator]; !taken {
			restored := snap
			e.extend(&restored)
			e.sessions[snap.Operator] = &restored
		}
		e.mu.Unlock()
		return Result{}, fmt.Errorf("committing %s for %s: %w", cmd.Type, snap.DeviceID, err)
	}

	e.logger.Info("session committed", "operator", snap.Operator, "device_id", snap.DeviceID, "type", cmd.Type)
	return Result{Outcome: OutcomeCommitted, DeviceID: snap.DeviceID, Command: cmd}, nil
}

// lookupLocked returns operator's session, deleting it if expired.
// Caller must hold mu.
func (e *Engine) lookupLocked(operator string) *Session {
	s, ok := e.sessions[operator]
	if !ok {
		return nil
	}
	if !e.now().Before(s.ExpiresAt) {
		delete(e.sessions, operator)
		e.logger.Debug("session expired", "operator", operator, "stage", s.Stage)
		return nil
	}
	return s
}

// put stores s with a fresh expiry. Caller must hold mu.
func (e *Engine) put(s *Session) {
	e.extend(s)
	e.sessions[s.Operator] = s
}

// extend resets s's expiry. Caller must hold mu.
func (e *Engine) extend(s *Session) {
	s.ExpiresAt = e.now().Add(e.ttl)
}
