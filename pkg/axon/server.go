package axon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ServerConfig holds configuration for running a WebServerInterface
type ServerConfig struct {
	// Port is the port to listen on (default: $PORT or 8080)
	Port string

	// Host is the host to bind to (default: "")
	Host string

	// ShutdownTimeout is the timeout for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration

	// Signals trigger a graceful shutdown (default: SIGTERM, SIGHUP, SIGQUIT, SIGINT)
	Signals []os.Signal
}

// DefaultServerConfig returns a server configuration with sensible defaults
func DefaultServerConfig() *ServerConfig {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return &ServerConfig{
		Port:            port,
		Host:            "",
		ShutdownTimeout: 30 * time.Second,
		Signals:         []os.Signal{syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT, os.Interrupt},
	}
}

// Server runs a WebServerInterface until a signal or context cancellation
type Server struct {
	ws         WebServerInterface
	config     *ServerConfig
	logger     *zap.Logger
	onShutdown []func(context.Context) error
}

// NewServer creates a new server runner
func NewServer(ws WebServerInterface, config *ServerConfig, logger *zap.Logger) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		ws:     ws,
		config: config,
		logger: logger,
	}
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)
}

// WebServer returns the wrapped server
func (s *Server) WebServer() WebServerInterface {
	return s.ws
}

// OnShutdown registers a hook run after the listener stopped
func (s *Server) OnShutdown(fn func(context.Context) error) {
	s.onShutdown = append(s.onShutdown, fn)
}

// Run starts the server and blocks until ctx is cancelled, a shutdown
// signal arrives or the listener fails
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		addr := s.Addr()
		s.logger.Info("starting server", zap.String("addr", addr), zap.String("adapter", s.ws.Name()))
		if err := s.ws.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	if len(s.config.Signals) > 0 {
		signal.Notify(quit, s.config.Signals...)
		defer signal.Stop(quit)
	}

	select {
	case err, ok := <-errCh:
		if ok {
			s.logger.Error("server failed to start", zap.Error(err))
			return fmt.Errorf("server failed to start: %w", err)
		}
	case sig := <-quit:
		s.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
	}

	return s.Shutdown()
}

// Shutdown stops the server and runs shutdown hooks
func (s *Server) Shutdown() error {
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := s.ws.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}
	for _, fn := range s.onShutdown {
		if err := fn(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Info("server shutdown complete")
	return errors.Join(errs...)
}
