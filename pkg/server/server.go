package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"mercator-hq/cwlens/pkg/config"
	"mercator-hq/cwlens/pkg/controller"
	"mercator-hq/cwlens/pkg/telemetry/health"
	"mercator-hq/cwlens/pkg/telemetry/metrics"
	"mercator-hq/cwlens/pkg/telemetry/tracing"
	"mercator-hq/cwlens/pkg/window"
)

// Backend is the state behind the server.
type Backend interface {
	Status() *controller.Status
	Subscribe() (<-chan *controller.Status, func())
	SwitchSession(ctx context.Context, sessionID, profileID string) (*controller.Status, error)
	SelectProfile(ctx context.Context, profileID string) (*controller.Status, error)
	SetSessionLimit(ctx context.Context, tokens *int) (*controller.Status, error)
	HandleSnapshot(ctx context.Context, sessionID string, snap *window.Snapshot) (*controller.Status, error)
}

// Deps are the optional collaborators of a Server.
type Deps struct {
	Logger      *slog.Logger
	Metrics     *metrics.Collector
	MetricsPath string
	Health      *health.Checker
	Tracer      *tracing.Tracer
	Version     health.VersionInfo
}

// Server is the Live Status HTTP server.
type Server struct {
	config  *config.ServerConfig
	backend Backend
	deps    Deps
	logger  *slog.Logger
	handler http.Handler

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	isRunning  bool
}

// New creates a Server. Nothing listens until Start.
func New(cfg *config.ServerConfig, backend Backend, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Health == nil {
		deps.Health = health.New(0)
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = config.DefaultMetricsPath
	}
	s := &Server{
		config:  cfg,
		backend: backend,
		deps:    deps,
		logger:  deps.Logger.With("component", "server"),
	}
	s.handler = s.setupRoutes()
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the bound address once Start is listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	s.isRunning = true
	srv := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting live status server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if ok {
			s.markStopped()
			return err
		}
		return nil
	}
}

// Shutdown stops accepting connections and waits for active requests up
// to the configured timeout. Open live connections are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	srv := s.httpServer
	s.mu.Unlock()

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultServerShutdownTimeout
	}
	s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var shutdownErr error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		shutdownErr = fmt.Errorf("server shutdown error: %w", err)
	}
	s.markStopped()
	s.logger.Info("live status server stopped")
	return shutdownErr
}

func (s *Server) markStopped() {
	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
}

// setupRoutes configures routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.deps.Health.LivenessHandler())
	mux.HandleFunc("GET /ready", s.deps.Health.ReadinessHandler())
	mux.HandleFunc("GET /version", health.VersionHandler(s.deps.Version.Version, s.deps.Version.Commit, s.deps.Version.BuildDate))
	if s.deps.Metrics != nil {
		mux.Handle("GET "+s.deps.MetricsPath, s.deps.Metrics.Handler())
	}

	mux.HandleFunc("GET /v1/view", s.handleView)
	mux.HandleFunc("GET /v1/live", s.handleLive)
	mux.HandleFunc("POST /v1/session", s.handleSession)
	mux.HandleFunc("POST /v1/session/limit", s.handleSessionLimit)
	mux.HandleFunc("POST /v1/snapshots", s.handleSnapshot)

	var handler http.Handler = mux
	handler = s.accessLog(mux, handler)
	handler = tracing.HTTPMiddleware(s.deps.Tracer, handler)
	handler = requestID(handler)
	handler = s.recovery(handler)
	return handler
}

// liveWriteWait bounds each write to a live client.
const liveWriteWait = 10 * time.Second
