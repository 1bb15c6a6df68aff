package dataguard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Serve runs an HTTP server for handler on cfg.HTTP.Addr until ctx ends or
// the process receives SIGINT or SIGTERM, then shuts it down gracefully and
// closes the Core.
func (c *Core) Serve(ctx context.Context, handler http.Handler) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:         c.cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  c.cfg.HTTP.ReadTimeout,
		WriteTimeout: c.cfg.HTTP.WriteTimeout,
		IdleTimeout:  c.cfg.HTTP.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return errors.Join(err, c.Close())
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("server starting", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Join(err, c.Close())
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	err = errors.Join(srv.Shutdown(shutdownCtx), c.Close())
	if err != nil {
		c.Logger.Error("shutdown completed with errors", "error", err)
		return err
	}
	c.Logger.Info("shutdown completed")
	return nil
}
