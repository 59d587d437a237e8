package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/errs"
)

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the API on its own goroutine between Start and Shutdown.
type Server struct {
	srv  *http.Server
	ln   net.Listener
	done chan error
}

func NewServer(cfg ServerConfig, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errs.Wrapf(err, "listen on %s", s.srv.Addr)
	}
	s.ln = ln
	s.done = make(chan error, 1)

	logCtx := logging.WithAttrs(ctx, slog.String("component", "transport.http"))
	go func() {
		err := s.srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(logCtx, "http server failed", slog.Any("err", errs.Loggable(err)))
			s.done <- err
			return
		}
		s.done <- nil
	}()

	logging.Info(logCtx, "http server started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr reports the bound address once started.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.srv.Addr
	}
	return s.ln.Addr().String()
}

// Done yields the serve result after the server stops.
func (s *Server) Done() <-chan error { return s.done }

func (s *Server) Shutdown(ctx context.Context) error {
	if s.ln == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return errs.Wrap(err, "shutdown http server")
	}
	return nil
}
