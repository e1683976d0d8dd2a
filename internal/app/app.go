package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
)

// App runs the server until SIGINT/SIGTERM and then releases its resources
// in reverse order of registration.
type App struct {
	srv     Runner
	closers []Closer
}

func New(srv Runner, closers ...Closer) *App {
	return &App{srv: srv, closers: closers}
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := a.srv.Run(ctx)

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: %w", err))
		}
	}
	return errors.Join(errs...)
}
