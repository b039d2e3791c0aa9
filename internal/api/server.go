package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-pool/internal/state"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ButtonPresser runs button presses. Satisfied by *controller.Controller.
type ButtonPresser interface {
	PressAsync(name string) error
}

// StateSource returns the persisted state. Satisfied by *state.Store.
type StateSource interface {
	Snapshot() state.State
}

// DisplaySource returns the status display texts. Satisfied by
// *platform.Board.
type DisplaySource interface {
	Snapshot() map[string]string
}

// HealthChecker reports a dependency's health. Satisfied by *mqtt.Client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Buttons  ButtonPresser
	State    StateSource
	Displays DisplaySource
	MQTT     HealthChecker // optional
	Version  string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	buttons  ButtonPresser
	state    StateSource
	displays DisplaySource
	mqtt     HealthChecker
	version  string
	server   *http.Server
	hub      *displayHub
	cancel   context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called. The WebSocket hub
// exists from New on, so BroadcastDisplay is safe to wire before Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Buttons == nil || deps.State == nil || deps.Displays == nil {
		return nil, fmt.Errorf("buttons, state and displays are required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		buttons:  deps.Buttons,
		state:    deps.State,
		displays: deps.Displays,
		mqtt:     deps.MQTT,
		version:  deps.Version,
		hub:      newDisplayHub(deps.Logger),
	}

	if !s.authEnabled() {
		s.logger.Warn("API authentication disabled: api.auth.jwt_secret is empty")
	}
	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go func() {
		<-srvCtx.Done()
		s.hub.closeAll()
	}()

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

// BroadcastDisplay pushes a display change to WebSocket clients
// subscribed to ChannelDisplayChanged.
func (s *Server) BroadcastDisplay(name, text string) {
	s.hub.publish(name, text)
}

func (s *Server) authEnabled() bool {
	return s.cfg.Auth.JWTSecret != ""
}
