// internal/ledger/implementation.go
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"scantrack/pkg/eventstore"
)

type cacheObserver interface {
	SetCheckedOut(n int)
}

// Ledger enforces the toggle rule: a scan checks an item in when it is out and out
// otherwise. The cache and the log are only changed together under mu.
type Ledger struct {
	mu    sync.Mutex
	cache map[string]struct{}

	log      EventLog
	resolver Resolver
	observer cacheObserver
	tracer   trace.Tracer
	now      func() time.Time
}

type Params struct {
	Log      EventLog
	Resolver Resolver
	Observer cacheObserver
	Clock    func() time.Time
}

// New builds the ledger and loads its cache from the log-derived checked-out set.
func New(ctx context.Context, p Params) (*Ledger, error) {
	if p.Log == nil || p.Resolver == nil {
		return nil, fmt.Errorf("ledger requires an event log and a resolver")
	}
	l := &Ledger{
		log:      p.Log,
		resolver: p.Resolver,
		observer: p.Observer,
		tracer:   otel.Tracer("scantrack/ledger"),
		now:      p.Clock,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if err := l.Rebuild(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Rebuild replaces the cache with the log-derived set. Call it after the log was edited
// outside the ledger.
func (l *Ledger) Rebuild(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.log.CheckedOut(ctx)
	if err != nil {
		return fmt.Errorf("failed to load checked out items: %w", err)
	}
	cache := make(map[string]struct{}, len(events))
	for _, ev := range events {
		cache[ev.Barcode] = struct{}{}
	}
	l.cache = cache
	l.observeLocked()
	return nil
}

// ProcessScan toggles the barcode's state.
func (l *Ledger) ProcessScan(ctx context.Context, barcode string) (Result, error) {
	return l.record(ctx, barcode, "")
}

// ForceCheckIn records a check-in regardless of the current state.
func (l *Ledger) ForceCheckIn(ctx context.Context, barcode string) (Result, error) {
	return l.record(ctx, barcode, eventstore.ActionCheckIn)
}

// ForceCheckOut records a check-out regardless of the current state.
func (l *Ledger) ForceCheckOut(ctx context.Context, barcode string) (Result, error) {
	return l.record(ctx, barcode, eventstore.ActionCheckOut)
}

// record appends one event. An empty forced action means toggle.
func (l *Ledger) record(ctx context.Context, barcode string, forced eventstore.Action) (Result, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.record",
		trace.WithAttributes(
			attribute.String("scan.barcode", barcode),
			attribute.String("scan.forced", string(forced)),
		),
	)
	defer span.End()

	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Result{}, ErrEmptyBarcode
	}

	dept, ok, err := l.resolver.Resolve(ctx, barcode)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("failed to resolve department: %w", err)
	}
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownDepartment, barcode)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, wasOut := l.cache[barcode]
	action := forced
	if action == "" {
		action = eventstore.ActionCheckOut
		if wasOut {
			action = eventstore.ActionCheckIn
		}
	}

	l.applyLocked(barcode, action)

	event := eventstore.Event{
		Timestamp:  l.now(),
		Barcode:    barcode,
		Action:     action,
		Department: dept,
	}
	id, err := l.log.Append(ctx, event)
	if err != nil {
		if wasOut {
			l.cache[barcode] = struct{}{}
		} else {
			delete(l.cache, barcode)
		}
		span.RecordError(err)
		return Result{}, fmt.Errorf("failed to append scan event: %w", err)
	}
	l.observeLocked()

	span.SetAttributes(
		attribute.String("scan.action", string(action)),
		attribute.Int64("event.id", id),
	)
	return Result{
		EventID:    id,
		Barcode:    barcode,
		Action:     action,
		Department: dept,
		Timestamp:  event.Timestamp,
	}, nil
}

func (l *Ledger) applyLocked(barcode string, action eventstore.Action) {
	if action == eventstore.ActionCheckOut {
		l.cache[barcode] = struct{}{}
		return
	}
	delete(l.cache, barcode)
}

func (l *Ledger) observeLocked() {
	if l.observer != nil {
		l.observer.SetCheckedOut(len(l.cache))
	}
}

// CheckedOutItems reads the authoritative set from the log, never from the cache.
func (l *Ledger) CheckedOutItems(ctx context.Context) ([]CheckedOutItem, error) {
	events, err := l.log.CheckedOut(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load checked out items: %w", err)
	}
	items := make([]CheckedOutItem, 0, len(events))
	for _, ev := range events {
		items = append(items, CheckedOutItem{
			EventID:      ev.ID,
			Barcode:      ev.Barcode,
			Department:   ev.Department,
			CheckedOutAt: ev.Timestamp,
		})
	}
	return items, nil
}

func (l *Ledger) RecentEvents(ctx context.Context, limit int) ([]eventstore.Event, error) {
	events, err := l.log.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent events: %w", err)
	}
	return events, nil
}

// StreamEvents pages through the log in insertion order, starting after afterID.
func (l *Ledger) StreamEvents(ctx context.Context, afterID int64, batchSize int) ([]eventstore.Event, error) {
	events, err := l.log.Stream(ctx, afterID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to stream events: %w", err)
	}
	return events, nil
}

// IsCheckedOut answers from the cache.
func (l *Ledger) IsCheckedOut(barcode string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.cache[strings.TrimSpace(barcode)]
	return ok
}

// Audit compares the cache with the log under the ledger lock so no append can land in
// between. It never mutates the cache.
func (l *Ledger) Audit(ctx context.Context) (AuditReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.log.CheckedOut(ctx)
	if err != nil {
		return AuditReport{}, fmt.Errorf("failed to load checked out items: %w", err)
	}

	derived := make(map[string]struct{}, len(events))
	report := AuditReport{CheckedOut: len(events), Cached: len(l.cache)}
	for _, ev := range events {
		derived[ev.Barcode] = struct{}{}
		if _, ok := l.cache[ev.Barcode]; !ok {
			report.Missing = append(report.Missing, ev.Barcode)
		}
	}
	for barcode := range l.cache {
		if _, ok := derived[barcode]; !ok {
			report.Stale = append(report.Stale, barcode)
		}
	}
	sort.Strings(report.Missing)
	sort.Strings(report.Stale)
	return report, nil
}
