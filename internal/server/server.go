// Package server runs the HTTP listener and the background workers that live
// alongside it, and stops both on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
)

// ShutdownFunc stops a component. It must return once the component has
// stopped or ctx is done.
type ShutdownFunc func(ctx context.Context) error

// Worker is a long-running background loop such as the orphan sweeper.
type Worker interface {
	Run(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

type component struct {
	name string
	stop ShutdownFunc
}

// Server wraps http.Server with background workers and ordered shutdown.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger

	mu         sync.Mutex
	components []component
	workers    sync.WaitGroup
}

// New creates a new Server instance.
func New(handler http.Handler, port int, readTimeout, writeTimeout, shutdownTimeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// OnShutdown registers fn to run after the HTTP server has stopped.
// Components stop in reverse registration order.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.components = append(s.components, component{name: name, stop: fn})
}

// Go starts w in a background goroutine right away and stops it during
// shutdown. A worker that returns an error other than context.Canceled is
// logged; it does not bring the server down.
func (s *Server) Go(ctx context.Context, name string, w Worker) {
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("background worker stopped", "name", name, "error", err)
		}
	}()
	s.OnShutdown(name, w.Shutdown)
}

// Run serves until a shutdown signal arrives, then shuts down gracefully.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.serve(ctx)
}

func (s *Server) serve(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		s.shutdown()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
		return s.shutdown()
	}
}

// shutdown stops the listener first so no new work arrives, then the
// registered components, last registered first.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("stopping HTTP server", "timeout", s.shutdownTimeout)
	s.httpServer.SetKeepAlivesEnabled(false)

	var result *multierror.Error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		result = multierror.Append(result, fmt.Errorf("http: %w", err))
	}

	s.mu.Lock()
	components := s.components
	s.mu.Unlock()

	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		s.logger.Info("shutting down component", "name", c.name)
		if err := c.stop(ctx); err != nil {
			s.logger.Error("component shutdown error", "name", c.name, "error", err)
			result = multierror.Append(result, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		s.logger.Info("component stopped", "name", c.name)
	}

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		result = multierror.Append(result, fmt.Errorf("background workers: %w", ctx.Err()))
	}

	if err := result.ErrorOrNil(); err != nil {
		s.logger.Error("shutdown completed with errors", "error_count", result.Len())
		return err
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
