package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"wildfire-dashboard/internal/config"

	"github.com/rs/zerolog"
)

// Server owns the listener lifecycle. It sets no write timeout because
// progress streams stay open for the length of a job; instead every request
// context is cancelled when shutdown starts, which ends those streams.
type Server struct {
	server *http.Server
	cancel context.CancelFunc
	log    *zerolog.Logger
}

func NewServer(cfg config.HTTPConfig, handler http.Handler, logger *zerolog.Logger) *Server {
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	srv.RegisterOnShutdown(cancel)
	return &Server{server: srv, cancel: cancel, log: logger}
}

// Start blocks until the server stops. A graceful shutdown returns nil.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.serve(ln)
}

func (s *Server) serve(ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, cancels in-flight requests and waits
// for their handlers to return or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("HTTP server shutting down")
	defer s.cancel()
	return s.server.Shutdown(ctx)
}
