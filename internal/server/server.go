package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/qgem/appcenter/backend/go-services/internal/config"
	"github.com/qgem/appcenter/backend/go-services/pkg/logger"
)

const defaultShutdownTimeout = 15 * time.Second

// Closer releases a resource during shutdown.
type Closer func(ctx context.Context) error

// Run serves h until ctx is cancelled, then drains in-flight requests within
// the shutdown timeout and runs closers in order. Errors from shutdown and
// every closer are combined.
func Run(ctx context.Context, cfg config.ServerConfig, h http.Handler, closers ...Closer) error {
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, cfg, h, closers...)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, ln net.Listener, cfg config.ServerConfig, h http.Handler, closers ...Closer) error {
	srv := &http.Server{
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s (environment=%s)", ln.Addr(), cfg.Environment)
		serveErr <- srv.Serve(ln)
	}()

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	var result error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			result = err
		}
	case <-ctx.Done():
		logger.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result = srv.Shutdown(shutdownCtx)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, c := range closers {
		result = multierr.Append(result, c(closeCtx))
	}
	return result
}
