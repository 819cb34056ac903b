package http

import (
	"context"
	"errors"
	"net"
	nethttp "net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 10 * time.Second

// Server runs an Echo instance until its context is cancelled, then drains
// in-flight requests for at most shutdownTimeout.
type Server struct {
	echo            *echo.Echo
	addr            string
	shutdownTimeout time.Duration
	log             zerolog.Logger
}

func NewServer(e *echo.Echo, port string, shutdownTimeout time.Duration, log zerolog.Logger) *Server {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return &Server{
		echo:            e,
		addr:            net.JoinHostPort("", port),
		shutdownTimeout: shutdownTimeout,
		log:             log,
	}
}

// Run blocks until ctx is done or the listener fails. A graceful shutdown
// returns nil.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("http server listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Dur("timeout", s.shutdownTimeout).Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
