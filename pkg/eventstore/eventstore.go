package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var (
	ErrInvalidAction = errors.New("invalid scan action")
	ErrEmptyBarcode  = errors.New("barcode is required")
)

// TimeLayout is the fixed-width UTC form timestamps are stored in. Lexical order of the
// stored text equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Action is the direction of a transaction.
type Action string

const (
	ActionCheckIn  Action = "check-in"
	ActionCheckOut Action = "check-out"
)

func (a Action) Valid() bool {
	return a == ActionCheckIn || a == ActionCheckOut
}

// Event is one immutable row of the transaction log.
type Event struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Barcode    string    `json:"barcode"`
	Action     Action    `json:"action"`
	Department string    `json:"department"`
}

// Stats summarizes the log for maintenance reporting.
type Stats struct {
	TotalEvents int64      `json:"total_events"`
	Oldest      *time.Time `json:"oldest,omitempty"`
	Newest      *time.Time `json:"newest,omitempty"`
}

type record struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	OccurredAt string `gorm:"column:occurred_at;type:text;not null;index:idx_scan_events_barcode_time,priority:2"`
	Barcode    string `gorm:"column:barcode;type:text;not null;index:idx_scan_events_barcode_time,priority:1"`
	Action     string `gorm:"column:action;type:text;not null"`
	Department string `gorm:"column:department;type:text;not null;default:''"`
}

func (record) TableName() string { return "scan_events" }

// EventStore is the append-only scan log. Safe for concurrent use; the database serializes
// writers.
type EventStore struct {
	db     *gorm.DB
	tracer trace.Tracer
}

// NewEventStore wraps an open GORM connection.
func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{
		db:     db,
		tracer: otel.Tracer("scantrack/eventstore"),
	}
}

// Migrate creates the scan_events table and its indexes.
func (es *EventStore) Migrate(ctx context.Context) error {
	if err := es.db.WithContext(ctx).AutoMigrate(&record{}); err != nil {
		return fmt.Errorf("migrate scan_events: %w", err)
	}
	return nil
}

// Append writes one event and returns its ID. A zero timestamp is replaced with now.
func (es *EventStore) Append(ctx context.Context, event Event) (int64, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("scan.barcode", event.Barcode),
			attribute.String("scan.action", string(event.Action)),
		),
	)
	defer span.End()

	if event.Barcode == "" {
		return 0, ErrEmptyBarcode
	}
	if !event.Action.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAction, event.Action)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	row := record{
		OccurredAt: FormatTime(event.Timestamp),
		Barcode:    event.Barcode,
		Action:     string(event.Action),
		Department: event.Department,
	}
	if err := es.db.WithContext(ctx).Create(&row).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("insert scan event: %w", err)
	}

	span.SetAttributes(attribute.Int64("event.id", row.ID))
	return row.ID, nil
}

// latestPerBarcode selects, for each barcode, the ID of its most recent event.
// Ties on timestamp go to the higher ID.
const latestPerBarcode = `
	e.id = (
		SELECT e2.id FROM scan_events e2
		WHERE e2.barcode = e.barcode
		ORDER BY e2.occurred_at DESC, e2.id DESC
		LIMIT 1
	)`

// CheckedOut returns the latest event of every barcode whose latest event is a check-out,
// oldest first. This is the authoritative checked-out view.
func (es *EventStore) CheckedOut(ctx context.Context) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.checked_out")
	defer span.End()

	var rows []record
	err := es.db.WithContext(ctx).
		Table("scan_events AS e").
		Select("e.id, e.occurred_at, e.barcode, e.action, e.department").
		Where(latestPerBarcode).
		Where("e.action = ?", string(ActionCheckOut)).
		Order("e.occurred_at ASC, e.id ASC").
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query checked out: %w", err)
	}

	span.SetAttributes(attribute.Int("events.checked_out", len(rows)))
	return toEvents(rows), nil
}

// Recent returns up to limit events, newest first. limit <= 0 returns everything.
func (es *EventStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.recent",
		trace.WithAttributes(attribute.Int("limit", limit)),
	)
	defer span.End()

	query := es.db.WithContext(ctx).Order("occurred_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []record
	if err := query.Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	return toEvents(rows), nil
}

// Stream returns up to batchSize events with an ID above fromID, in insertion order. Full
// log exports page through the log with it.
func (es *EventStore) Stream(ctx context.Context, fromID int64, batchSize int) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.stream",
		trace.WithAttributes(
			attribute.Int64("from.id", fromID),
			attribute.Int("batch.size", batchSize),
		),
	)
	defer span.End()

	var rows []record
	err := es.db.WithContext(ctx).
		Where("id > ?", fromID).
		Order("id ASC").
		Limit(batchSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query event stream: %w", err)
	}

	span.SetAttributes(attribute.Int("events.streamed", len(rows)))
	return toEvents(rows), nil
}

// Stats reports the event count and time range.
func (es *EventStore) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	var bounds struct {
		Total  int64
		Oldest *string
		Newest *string
	}
	err := es.db.WithContext(ctx).
		Model(&record{}).
		Select("COUNT(*) AS total, MIN(occurred_at) AS oldest, MAX(occurred_at) AS newest").
		Scan(&bounds).Error
	if err != nil {
		return out, fmt.Errorf("query log stats: %w", err)
	}

	out.TotalEvents = bounds.Total
	if bounds.Oldest != nil {
		ts := ParseTime(*bounds.Oldest)
		out.Oldest = &ts
	}
	if bounds.Newest != nil {
		ts := ParseTime(*bounds.Newest)
		out.Newest = &ts
	}
	return out, nil
}

// DeleteSettledBefore removes events older than cutoff for barcodes that are not currently
// checked out. The derived status of every barcode is unchanged afterwards.
func (es *EventStore) DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.delete_settled",
		trace.WithAttributes(attribute.String("cutoff", FormatTime(cutoff))),
	)
	defer span.End()

	checkedOut := es.db.
		Table("scan_events AS e").
		Select("e.barcode").
		Where(latestPerBarcode).
		Where("e.action = ?", string(ActionCheckOut))

	res := es.db.WithContext(ctx).
		Where("occurred_at < ?", FormatTime(cutoff)).
		Where("barcode NOT IN (?)", checkedOut).
		Delete(&record{})
	if res.Error != nil {
		span.RecordError(res.Error)
		return 0, fmt.Errorf("delete settled events: %w", res.Error)
	}

	span.SetAttributes(attribute.Int64("events.deleted", res.RowsAffected))
	return res.RowsAffected, nil
}

// DeleteCompletedBefore archives completed transactions: events older than cutoff for
// barcodes that have a check-in before cutoff preceded by a check-out. The latest event of
// every barcode is kept, so derived statuses never change.
func (es *EventStore) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.delete_completed",
		trace.WithAttributes(attribute.String("cutoff", FormatTime(cutoff))),
	)
	defer span.End()

	cut := FormatTime(cutoff)
	completed := es.db.
		Table("scan_events AS c").
		Select("c.barcode").
		Where("c.action = ? AND c.occurred_at < ?", string(ActionCheckIn), cut).
		Where(`EXISTS (
			SELECT 1 FROM scan_events o
			WHERE o.barcode = c.barcode AND o.action = ? AND o.occurred_at < c.occurred_at
		)`, string(ActionCheckOut))
	latest := es.db.
		Table("scan_events AS e").
		Select("e.id").
		Where(latestPerBarcode)

	res := es.db.WithContext(ctx).
		Where("occurred_at < ?", cut).
		Where("barcode IN (?)", completed).
		Where("id NOT IN (?)", latest).
		Delete(&record{})
	if res.Error != nil {
		span.RecordError(res.Error)
		return 0, fmt.Errorf("delete completed events: %w", res.Error)
	}

	span.SetAttributes(attribute.Int64("events.deleted", res.RowsAffected))
	return res.RowsAffected, nil
}

// Clear deletes the whole log and returns the number of rows removed.
func (es *EventStore) Clear(ctx context.Context) (int64, error) {
	res := es.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&record{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear scan events: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// FormatTime renders t in the stored layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a stored timestamp. Malformed values degrade to the current time so a
// single bad row never stops a report.
func ParseTime(value string) time.Time {
	ts, err := time.Parse(TimeLayout, value)
	if err != nil {
		if ts, err = time.Parse(time.RFC3339Nano, value); err != nil {
			return time.Now()
		}
	}
	return ts
}

func toEvents(rows []record) []Event {
	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, Event{
			ID:         row.ID,
			Timestamp:  ParseTime(row.OccurredAt),
			Barcode:    row.Barcode,
			Action:     Action(row.Action),
			Department: row.Department,
		})
	}
	return events
}
