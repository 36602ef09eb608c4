package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/relaydesk/relaydesk-core/internal/audit"
	"github.com/relaydesk/relaydesk-core/internal/command"
	"github.com/relaydesk/relaydesk-core/internal/device"
	"github.com/relaydesk/relaydesk-core/internal/event"
	"github.com/relaydesk/relaydesk-core/internal/form"
	"github.com/relaydesk/relaydesk-core/internal/infrastructure/config"
	"github.com/relaydesk/relaydesk-core/internal/infrastructure/database"
	"github.com/relaydesk/relaydesk-core/internal/infrastructure/logging"
	"github.com/relaydesk/relaydesk-core/internal/message"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Publisher accepts device-channel events. *event.Bus implements it.
type Publisher interface {
	Publish(e event.Event)
}

// HealthChecker is implemented by optional infrastructure (database, MQTT,
// InfluxDB) whose status is reported by /api/v1/health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConnectionReporter reports a live connection state for /api/v1/metrics.
type ConnectionReporter interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Registry *device.Registry
	Commands *command.Service
	Messages *message.Store
	Forms    *form.Store
	Events   Publisher

	// Optional.
	Audit  audit.Repository
	DB     *database.DB
	MQTT   ConnectionReporter
	Health map[string]HealthChecker
	Hub    *Hub // If set, the server uses this hub instead of creating its own

	Version string
}

// Server is the HTTP API server for RelayDesk Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	registry  *device.Registry
	commands  *command.Service
	messages  *message.Store
	forms     *form.Store
	events    Publisher
	auditRepo audit.Repository
	db        *database.DB
	mqtt      ConnectionReporter
	health    map[string]HealthChecker
	version   string
	startTime time.Time

	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
	now         func() time.Time
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If a required dependency is missing
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	case deps.Registry == nil:
		return nil, fmt.Errorf("device registry is required")
	case deps.Commands == nil:
		return nil, fmt.Errorf("command service is required")
	case deps.Messages == nil:
		return nil, fmt.Errorf("message store is required")
	case deps.Forms == nil:
		return nil, fmt.Errorf("form store is required")
	case deps.Events == nil:
		return nil, fmt.Errorf("event publisher is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		registry:  deps.Registry,
		commands:  deps.Commands,
		messages:  deps.Messages,
		forms:     deps.Forms,
		events:    deps.Events,
		auditRepo: deps.Audit,
		db:        deps.DB,
		mqtt:      deps.MQTT,
		health:    deps.Health,
		version:   deps.Version,
		startTime: time.Now(),
		now:       time.Now,
	}
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}
	return s, nil
}

// Hub returns the WebSocket hub, creating it if Start has not run yet.
// Register it on the event bus to feed WebSocket clients.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Handler returns the fully wired router. Start uses it; tests drive it
// with httptest.
func (s *Server) Handler() http.Handler {
	s.Hub()
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	hub := s.Hub()
	if !s.externalHub {
		go hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

func (s *Server) publish(typ event.Type, deviceID string, fill func(*event.Event)) {
	e := event.Event{Type: typ, DeviceID: deviceID, Time: s.now()}
	if d, ok := s.registry.Get(deviceID); ok {
		e.Device = &d
	}
	if fill != nil {
		fill(&e)
	}
	s.events.Publish(e)
}
