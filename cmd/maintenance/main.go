// cmd/maintenance/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"scantrack/internal/app"
	"scantrack/pkg/config"
	"scantrack/pkg/logger"
)

const usage = `usage: maintenance <command> [flags]

commands:
  stats                  print log statistics
  archive [-days N]      delete completed transactions older than N days
  cleanup [-days N]      delete settled history older than N days
  clear [-yes]           delete the whole transaction log
  set-pin                set the admin PIN (read from the terminal)
  clear-pin              remove the admin PIN
  import-items FILE      load "BARCODE name" lines into the item catalog
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "scantrack-maintenance",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      "console",
		Output:      os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner, err := app.New(ctx, app.Params{Config: cfg, Logger: logg})
	if err != nil {
		log.Fatalf("open scanner store: %v", err)
	}
	defer scanner.Close()

	if err := run(ctx, scanner, cfg, os.Args[1], os.Args[2:]); err != nil {
		logg.Error(ctx, "maintenance failed", err)
		scanner.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, scanner *app.App, cfg *config.Config, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	days := fs.Int("days", cfg.Retention.DaysToKeep, "days of history to keep")
	yes := fs.Bool("yes", false, "skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch cmd {
	case "stats":
		stats, err := scanner.Retention().Stats(ctx)
		if err != nil {
			return err
		}
		return printJSON(stats)
	case "archive":
		n, err := scanner.Retention().Archive(ctx, *days)
		if err != nil {
			return err
		}
		fmt.Printf("archived %d events\n", n)
	case "cleanup":
		n, err := scanner.Retention().Cleanup(ctx, *days)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d events\n", n)
	case "clear":
		if !*yes && !confirm("delete the entire transaction log?") {
			return fmt.Errorf("aborted")
		}
		n, err := scanner.Retention().Clear(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("cleared %d events\n", n)
	case "set-pin":
		pin, err := readPIN()
		if err != nil {
			return err
		}
		if err := scanner.Admin().SetPIN(ctx, pin); err != nil {
			return err
		}
		fmt.Println("admin PIN updated")
	case "clear-pin":
		if err := scanner.Admin().ClearPIN(ctx); err != nil {
			return err
		}
		fmt.Println("admin PIN removed")
	case "import-items":
		if fs.NArg() != 1 {
			return fmt.Errorf("import-items needs a file argument")
		}
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		res, err := scanner.Catalog().Import(ctx, f)
		if err != nil {
			return err
		}
		return printJSON(res)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	var answer string
	_, _ = fmt.Fscanln(os.Stdin, &answer)
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}

// readPIN prompts without echo when stdin is a terminal and reads one line otherwise.
func readPIN() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		var pin string
		if _, err := fmt.Fscanln(os.Stdin, &pin); err != nil {
			return "", fmt.Errorf("read pin: %w", err)
		}
		return strings.TrimSpace(pin), nil
	}

	fmt.Fprint(os.Stderr, "new PIN: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read pin: %w", err)
	}
	fmt.Fprint(os.Stderr, "repeat PIN: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read pin: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("PINs do not match")
	}
	return string(first), nil
}
