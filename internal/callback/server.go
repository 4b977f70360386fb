package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Config holds configuration for the callback listener
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig listens on an ephemeral loopback port
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            0,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server is a short-lived loopback HTTP server that waits for the login
// redirect
type Server struct {
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
	config   Config

	done     chan struct{}
	once     sync.Once
	outcome  error
	serveErr chan error
}

// NewServer creates a callback server delivering the redirect to login
func NewServer(login LoginHandler, config Config, logger *slog.Logger) *Server {
	s := &Server{
		logger:   logger.With(slog.String("component", "callback")),
		config:   config,
		done:     make(chan struct{}),
		serveErr: make(chan error, 1),
	}

	s.server = &http.Server{
		Handler:      NewRouter(login, s.finish, s.logger),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln

	s.logger.Debug("waiting for login redirect", slog.String("addr", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr <- fmt.Errorf("server error: %w", err)
		}
	}()
	return nil
}

// URL returns the base URL the provider should redirect to
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String()
}

// Wait blocks until a redirect has been handled and returns its outcome
func (s *Server) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.outcome
	case err := <-s.serveErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

func (s *Server) finish(err error) {
	s.once.Do(func() {
		s.outcome = err
		close(s.done)
	})
}
