// internal/retention/service.go
package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scantrack/pkg/eventstore"
	"scantrack/pkg/logger"
)

// DefaultDaysToKeep matches the startup archive window.
const DefaultDaysToKeep = 30

var ErrInvalidDays = errors.New("days to keep must be positive")

type logStore interface {
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Clear(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (eventstore.Stats, error)
}

type rebuilder interface {
	Rebuild(ctx context.Context) error
}

// Service trims the scan log. Archive and Cleanup never change the derived status of any
// barcode, so the ledger cache stays valid; Clear rebuilds it.
type Service struct {
	store  logStore
	ledger rebuilder
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(store logStore, ledger rebuilder, logg *logger.Logger) *Service {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{store: store, ledger: ledger, logg: logg, now: time.Now}
}

// Stats reports the log size and time range.
func (s *Service) Stats(ctx context.Context) (eventstore.Stats, error) {
	return s.store.Stats(ctx)
}

// Archive removes completed check-out/check-in history older than days.
func (s *Service) Archive(ctx context.Context, days int) (int64, error) {
	cutoff, err := s.cutoff(days)
	if err != nil {
		return 0, err
	}
	n, err := s.store.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive completed transactions: %w", err)
	}
	s.report(ctx, "archive", n, days)
	return n, nil
}

// Cleanup removes every event older than days for barcodes that are not checked out.
func (s *Service) Cleanup(ctx context.Context, days int) (int64, error) {
	cutoff, err := s.cutoff(days)
	if err != nil {
		return 0, err
	}
	n, err := s.store.DeleteSettledBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old logs: %w", err)
	}
	s.report(ctx, "cleanup", n, days)
	return n, nil
}

// Clear deletes the whole log and rebuilds the ledger cache from the now empty log.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	n, err := s.store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	if s.ledger != nil {
		if err := s.ledger.Rebuild(ctx); err != nil {
			return n, fmt.Errorf("rebuild ledger after clear: %w", err)
		}
	}
	s.logg.Warn(s.logg.WithField(ctx, "deleted", n), "scan log cleared")
	return n, nil
}

func (s *Service) cutoff(days int) (time.Time, error) {
	if days <= 0 {
		return time.Time{}, ErrInvalidDays
	}
	return s.now().Add(-time.Duration(days) * 24 * time.Hour), nil
}

func (s *Service) report(ctx context.Context, op string, n int64, days int) {
	ctx = s.logg.WithFields(ctx, map[string]any{"op": op, "deleted": n, "days_to_keep": days})
	s.logg.Info(ctx, "scan log trimmed")
}
