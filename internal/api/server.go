package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/saphari-core/internal/audit"
	"github.com/nerrad567/saphari-core/internal/dashboard"
	"github.com/nerrad567/saphari-core/internal/device"
	"github.com/nerrad567/saphari-core/internal/infrastructure/config"
	"github.com/nerrad567/saphari-core/internal/infrastructure/database"
	"github.com/nerrad567/saphari-core/internal/infrastructure/logging"
	"github.com/nerrad567/saphari-core/internal/metrics"
	"github.com/nerrad567/saphari-core/internal/telemetry"
	"github.com/nerrad567/saphari-core/internal/topic"
	"github.com/nerrad567/saphari-core/internal/widget"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ConnectionStatus reports whether the broker connection is up.
// *mqtt.Client satisfies it.
type ConnectionStatus interface {
	IsConnected() bool
}

// CommandPublisher sends widget commands to devices.
// *widget.Publisher satisfies it.
type CommandPublisher interface {
	Publish(ctx context.Context, deviceID string, cmd widget.CommandMessage) (widget.CommandMessage, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Registry   *device.Registry
	Cache      *telemetry.Cache
	Topics     topic.Model
	Dashboards *dashboard.Service

	// Publisher is optional; without it widget commands return 503.
	Publisher CommandPublisher

	// Audit is optional; without it nothing is recorded and /audit is 404.
	Audit audit.Repository

	// Transport, DB and Metrics are optional and only feed /health and /metrics.
	Transport ConnectionStatus
	DB        *database.DB
	Metrics   *metrics.Metrics

	// Hub is used instead of creating one when set, so the router can be
	// given the hub as an observer before the server starts.
	Hub *Hub

	Version string
}

// Server is the HTTP API and WebSocket server.
//
// It is created with New, started with Start and stopped with Close.
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	registry   *device.Registry
	cache      *telemetry.Cache
	topics     topic.Model
	resolver   *widget.Resolver
	dashboards *dashboard.Service
	publisher  CommandPublisher
	audit      audit.Repository
	transport  ConnectionStatus
	db         *database.DB
	metrics    *metrics.Metrics
	version    string
	startTime  time.Time
	now        func() time.Time

	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("telemetry cache is required")
	}
	if deps.Dashboards == nil {
		return nil, fmt.Errorf("dashboard service is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		registry:   deps.Registry,
		cache:      deps.Cache,
		topics:     deps.Topics,
		resolver:   widget.NewResolver(deps.Cache),
		dashboards: deps.Dashboards,
		publisher:  deps.Publisher,
		audit:      deps.Audit,
		transport:  deps.Transport,
		db:         deps.DB,
		metrics:    deps.Metrics,
		version:    deps.Version,
		startTime:  time.Now(),
		now:        time.Now,
	}
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
		s.hub.SetMetrics(deps.Metrics)
	}

	return s, nil
}

// Hub returns the WebSocket hub, for registering it as a router observer.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The hub runs until Close or until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
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
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds for
// in-flight requests.
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

// HealthCheck reports whether the server has been started.
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
