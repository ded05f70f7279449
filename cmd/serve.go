package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/yubal/internal/server"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 15 * time.Second

// Serve runs the HTTP job API until SIGINT/SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		cfg.Port = port
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr(), err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.serve(ctx, ln)
}

// serve blocks until ctx is done, then drains HTTP requests, running jobs and websocket streams.
func (r *Runner) serve(ctx context.Context, ln net.Listener) error {
	api := server.New(server.Opts{Jobs: r.jobs, Covers: r.covers, Logger: r.logger})
	srv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("server started", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	api.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("graceful shutdown failed", "error", err)
		_ = srv.Close()
	}
	if err := r.executor.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("jobs still running at exit", "error", err)
	}

	r.logger.Info("server stopped")
	return nil
}
