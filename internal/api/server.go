package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/relayhub/internal/automation"
	"github.com/nerrad567/relayhub/internal/infrastructure/config"
	"github.com/nerrad567/relayhub/internal/infrastructure/logging"
	"github.com/nerrad567/relayhub/internal/panel"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// defaultWSPath is used when the WebSocket config leaves the path empty.
const defaultWSPath = "/ws"

// BusHealth reports broker connectivity for the metrics endpoint.
// *mqtt.Client satisfies it.
type BusHealth interface {
	IsConnected() bool
	SubscriptionCount() int
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Panel   config.PanelConfig
	Logger  *logging.Logger
	Engine  *automation.Engine
	Hub     *Hub      // If set, the server uses this hub instead of creating its own
	MQTT    BusHealth // optional
	Title   string    // dashboard heading; empty keeps the built-in one
	Version string
}

// Server is the HTTP and WebSocket front end of Relay Hub.
//
// It serves the dashboard, the WebSocket session endpoint and a small
// read-only REST surface. The server is created with New() and started with
// Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	panelCfg    config.PanelConfig
	logger      *logging.Logger
	engine      *automation.Engine
	mqtt        BusHealth
	title       string
	version     string
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, engine)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("relay engine is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		panelCfg:  deps.Panel,
		logger:    deps.Logger,
		engine:    deps.Engine,
		mqtt:      deps.MQTT,
		title:     deps.Title,
		version:   deps.Version,
		startTime: time.Now(),
	}
	if s.wsCfg.Path == "" {
		s.wsCfg.Path = defaultWSPath
	}

	// The engine broadcasts through the hub, so main usually creates it first
	// and passes it in.
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(s.wsCfg, s.logger)
	}

	return s, nil
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the hub's shutdown watcher, builds the router and launches the
// HTTP listener in a background goroutine. The server can be stopped with
// Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr, "ws_path", s.wsCfg.Path)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It disconnects WebSocket clients and waits up to 10 seconds for in-flight
// requests to complete, then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
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

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
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

// panelHandler builds the dashboard handler for the current settings.
func (s *Server) panelHandler() http.Handler {
	return panel.Handler(panel.Options{
		Dir:    s.panelCfg.Dir,
		WSPath: s.wsCfg.Path,
		Relays: s.engine.RelayCount(),
		Title:  s.title,
	})
}
