// Package api provides the HTTP REST API and WebSocket server for the
// HouseDCC service.
//
// It exposes fleet registry operations, track commands, worker pin
// configuration, the wire flight recorder, and a real-time status
// stream to user interfaces (throttle apps, layout dashboards).
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pascal-fb-martin/housedcc/internal/capture"
	"github.com/pascal-fb-martin/housedcc/internal/depot"
	"github.com/pascal-fb-martin/housedcc/internal/fleet"
	"github.com/pascal-fb-martin/housedcc/internal/infrastructure/config"
	"github.com/pascal-fb-martin/housedcc/internal/infrastructure/logging"
	"github.com/pascal-fb-martin/housedcc/internal/infrastructure/mqtt"
	"github.com/pascal-fb-martin/housedcc/internal/pidcc"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Registry *fleet.Registry
	Link     *pidcc.Link
	Recorder *capture.Recorder
	Depot    *depot.Depot // optional: fleet snapshot persistence
	MQTT     *mqtt.Client // optional: retained status publishing
	Version  string
}

// Server is the HTTP API server for the HouseDCC service.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	registry *fleet.Registry
	link     *pidcc.Link
	recorder *capture.Recorder
	depot    *depot.Depot
	mqtt     *mqtt.Client
	version  string
	server   *http.Server
	hub      *Hub
	cancel   context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, registry, link)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("fleet registry is required")
	}
	if deps.Link == nil {
		return nil, fmt.Errorf("pidcc link is required")
	}
	// MQTT and the depot are optional — commands and reads work without them

	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		registry: deps.Registry,
		link:     deps.Link,
		recorder: deps.Recorder,
		depot:    deps.Depot,
		mqtt:     deps.MQTT,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the
// HTTP listener in a background goroutine. The server can be stopped
// with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
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

// fleetChanged distributes the new fleet state after a mutating
// operation: WebSocket broadcast to subscribed clients, retained MQTT
// status publish, and a depot snapshot save. Distribution failures are
// logged, never surfaced to the HTTP caller — the mutation itself
// already succeeded.
func (s *Server) fleetChanged() {
	status := s.registry.Status()

	if s.hub != nil {
		s.hub.Broadcast(channelFleetStatus, status)
	}

	if s.mqtt != nil || s.depot != nil {
		snapshot := s.registry.Snapshot()
		go func() {
			if s.mqtt != nil {
				payload, err := json.Marshal(status)
				if err == nil {
					if err := s.mqtt.PublishStatus(payload); err != nil {
						s.logger.Warn("status publish failed", "error", err)
					}
				}
			}
			if s.depot != nil {
				if err := s.depot.Save(snapshot); err != nil {
					s.logger.Error("depot save failed", "error", err)
				}
			}
		}()
	}
}
