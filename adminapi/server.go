/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package adminapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/acronis/go-governor/log"
	"github.com/acronis/go-governor/service"
)

// Server is the admin HTTP server with the lifecycle of service.Unit.
type Server struct {
	HTTPServer      *http.Server
	Logger          log.FieldLogger
	ShutdownTimeout time.Duration

	listener       net.Listener
	addr           atomic.Value
	httpServerDone atomic.Value
}

var _ service.Unit = (*Server)(nil)

// NewServer creates a new admin server serving the handler.
func NewServer(cfg *Config, logger log.FieldLogger, handler http.Handler) *Server {
	return NewServerWithListener(cfg, logger, handler, nil)
}

// NewServerWithListener creates a new admin server serving the handler on the already opened listener.
// cfg.Address is ignored if the listener is not nil.
func NewServerWithListener(cfg *Config, logger log.FieldLogger, handler http.Handler, listener net.Listener) *Server {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Server{
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           handler,
			ReadTimeout:       cfg.Timeouts.Read,
			ReadHeaderTimeout: cfg.Timeouts.Read,
			WriteTimeout:      cfg.Timeouts.Write,
			IdleTimeout:       cfg.Timeouts.Idle,
		},
		Logger:          logger,
		ShutdownTimeout: cfg.Timeouts.Shutdown,
		listener:        listener,
	}
}

// Start starts the admin server in a blocking way.
// It's supposed that this method will be called in a separate goroutine.
// If a fatal error occurs, it will be sent to the fatalError channel.
func (s *Server) Start(fatalError chan<- error) {
	done := make(chan struct{})
	defer close(done)
	s.httpServerDone.Store(done)

	logger := s.Logger.With(log.String("address", s.HTTPServer.Addr))
	logger.Info("starting admin HTTP server...")

	if s.listener == nil {
		listener, err := net.Listen("tcp", s.HTTPServer.Addr)
		if err != nil {
			logger.Error("admin HTTP server error", log.Error(err))
			fatalError <- err
			return
		}
		s.listener = listener
	}
	s.addr.Store(s.listener.Addr().String())

	if err := s.HTTPServer.Serve(s.listener); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("admin HTTP server closed")
			return
		}
		logger.Error("admin HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops the admin server. In graceful mode, in-flight requests are finished within ShutdownTimeout.
func (s *Server) Stop(gracefully bool) error {
	defer s.waitDone()

	if !gracefully {
		s.Logger.Info("closing admin HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("admin HTTP server closing error", log.Error(err))
			return err
		}
		return nil
	}

	s.Logger.Info("shutting down admin HTTP server...", log.Duration("timeout", s.ShutdownTimeout))
	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		s.Logger.Error("admin HTTP server shutting down error", log.Error(err))
		return err
	}
	return nil
}

// Addr returns the address the server listens on. It's empty until the server is started.
func (s *Server) Addr() string {
	addr, _ := s.addr.Load().(string)
	return addr
}

func (s *Server) waitDone() {
	if done, ok := s.httpServerDone.Load().(chan struct{}); ok && done != nil {
		<-done
	}
}
