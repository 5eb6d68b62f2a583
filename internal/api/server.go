package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DanialSobri/api-studio/internal/audit"
	"github.com/DanialSobri/api-studio/internal/auth"
	"github.com/DanialSobri/api-studio/internal/infrastructure/config"
	"github.com/DanialSobri/api-studio/internal/infrastructure/logging"
	"github.com/DanialSobri/api-studio/internal/infrastructure/ratelimit"
	"github.com/DanialSobri/api-studio/internal/project"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// LoginLimiter throttles login attempts per client IP. It is satisfied by
// *ratelimit.Limiter; a nil limiter disables throttling.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// HealthProbe is one dependency checked by GET /api/health.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Logger    *logging.Logger
	Auth      *auth.Authenticator
	AuditRepo audit.Repository
	AuditLog  *audit.Log // optional: when set, the WebSocket hub and metrics are attached as sinks
	Projects  project.Directory
	Evaluator *project.Evaluator // optional: built over Projects when nil
	Limiter   LoginLimiter       // optional
	DB        *sql.DB            // optional: exports pool statistics
	Probes    []HealthProbe
	Version   string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	auth      *auth.Authenticator
	auditRepo audit.Repository
	projects  project.Directory
	evaluator *project.Evaluator
	limiter   LoginLimiter
	probes    []HealthProbe
	version   string
	server    *http.Server
	hub       *Hub
	tickets   *ticketStore
	metrics   *Metrics
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Auth == nil {
		return nil, errors.New("authenticator is required")
	}
	if deps.AuditRepo == nil {
		return nil, errors.New("audit repository is required")
	}
	if deps.Projects == nil {
		return nil, errors.New("project directory is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger.With("component", "api"),
		auth:      deps.Auth,
		auditRepo: deps.AuditRepo,
		projects:  deps.Projects,
		evaluator: deps.Evaluator,
		limiter:   deps.Limiter,
		probes:    deps.Probes,
		version:   deps.Version,
		tickets:   newTicketStore(),
	}
	if s.evaluator == nil {
		s.evaluator = project.NewEvaluator(deps.Projects)
	}

	s.hub = NewHub(s.wsCfg, s.logger)
	s.metrics = NewMetrics(deps.DB, s.hub.ClientCount)

	if deps.AuditLog != nil {
		deps.AuditLog.AddSink(s.hub)
		deps.AuditLog.AddSink(s.metrics)
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and ticket cleanup, builds the router and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.cleanTicketsLoop(srvCtx)

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
		return errors.New("api server not started")
	}

	return nil
}

// Hub returns the security feed hub.
func (s *Server) Hub() *Hub {
	return s.hub
}
