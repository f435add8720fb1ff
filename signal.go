package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// errInterrupted is the cancellation cause after SIGINT or SIGTERM, so a
// command stopped mid-download reports why.
var errInterrupted = errors.New("interrupted")

// forceExit ends the process on a second signal. Tests replace it.
var forceExit = func() { os.Exit(1) }

// shutdownContext returns a context canceled with errInterrupted on the
// first SIGINT/SIGTERM. A second signal force-exits, for a download that
// does not notice cancellation promptly. The watcher stops when parent is
// done.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancelCause(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("received signal, canceling", slog.String("signal", sig.String()))
			cancel(errInterrupted)
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit", slog.String("signal", sig.String()))
			forceExit()
		case <-parent.Done():
			return
		}
	}()

	return ctx
}
