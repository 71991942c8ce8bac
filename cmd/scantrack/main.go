// cmd/scantrack/main.go
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"scantrack/internal/app"
	"scantrack/internal/keyboard"
	"scantrack/pkg/config"
	"scantrack/pkg/logger"
	"scantrack/pkg/tracing"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var out io.Writer = os.Stdout
	if cfg.Scanner.KeyboardSource == "terminal" && term.IsTerminal(int(os.Stdout.Fd())) {
		out = keyboard.CRLFWriter(os.Stdout)
	}
	logg := logger.New(logger.Options{
		ServiceName: cfg.Tracing.ServiceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		Output:      out,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		logg.Error(ctx, "tracing disabled", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	scanner, err := app.New(ctx, app.Params{Config: cfg, Logger: logg})
	if err != nil {
		logg.Error(ctx, "failed to start scanner", err)
		os.Exit(1)
	}

	runErr := scanner.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "scanner exited", runErr)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logg.Error(ctx, "flush traces", err)
	}
	if err := scanner.Close(); err != nil {
		logg.Error(ctx, "close scanner", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		os.Exit(1)
	}
}
