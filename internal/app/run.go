// internal/app/run.go
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/multierr"

	"scantrack/internal/keyboard"
)

const shutdownTimeout = 5 * time.Second

// Run serves the control API and starts the input loops and scheduled jobs. It blocks until
// ctx is canceled or the HTTP server fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.App.HTTPAddr)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.logg.Info(a.logg.WithField(ctx, "addr", ln.Addr().String()), "control api listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	for _, svc := range a.jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logg.Error(a.logg.WithField(ctx, "service", svc.Name()), "job service stopped", err)
			}
		}()
	}

	if a.keySource != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := a.segmenter.Run(ctx, a.keySource)
			switch {
			case errors.Is(err, keyboard.ErrInterrupted):
				a.logg.Info(ctx, "interrupt typed on the scanner terminal, shutting down")
				cancel()
			case err == nil:
				a.logg.Warn(ctx, "keyboard capture ended, keyboard scans are no longer recorded")
			case !errors.Is(err, context.Canceled):
				a.logg.Error(ctx, "keyboard source stopped", err)
			}
		}()
	}

	if port := a.cfg.Scanner.SerialPort; port != "" {
		if _, err := a.serial.Open(ctx, port, a.cfg.Scanner.SerialBaud); err != nil {
			a.logg.Error(ctx, "serial scanner not opened", err)
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		cancel()
	}

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer stop()
	runErr = multierr.Combine(runErr, srv.Shutdown(shutdownCtx), a.serial.Close())
	wg.Wait()
	a.logg.Info(ctx, "scanner stopped")
	return runErr
}
