// internal/ledger/service.go
package ledger

import (
	"context"

	"scantrack/pkg/eventstore"
)

// Service defines the transaction ledger surface.
type Service interface {
	ProcessScan(ctx context.Context, barcode string) (Result, error)
	ForceCheckIn(ctx context.Context, barcode string) (Result, error)
	ForceCheckOut(ctx context.Context, barcode string) (Result, error)
	CheckedOutItems(ctx context.Context) ([]CheckedOutItem, error)
	RecentEvents(ctx context.Context, limit int) ([]eventstore.Event, error)
	StreamEvents(ctx context.Context, afterID int64, batchSize int) ([]eventstore.Event, error)
	Audit(ctx context.Context) (AuditReport, error)
	Rebuild(ctx context.Context) error
}

// EventLog is the persistence contract the ledger depends on.
type EventLog interface {
	Append(ctx context.Context, event eventstore.Event) (int64, error)
	CheckedOut(ctx context.Context) ([]eventstore.Event, error)
	Recent(ctx context.Context, limit int) ([]eventstore.Event, error)
	Stream(ctx context.Context, fromID int64, batchSize int) ([]eventstore.Event, error)
}

// Resolver maps a barcode to its department.
type Resolver interface {
	Resolve(ctx context.Context, barcode string) (string, bool, error)
}
