// internal/overdue/monitor.go
package overdue

import (
	"context"
	"fmt"
	"time"

	"scantrack/internal/ledger"
	"scantrack/internal/notify"
	"scantrack/pkg/logger"
)

const jobName = "overdue-check"

type checkedOutSource interface {
	CheckedOutItems(ctx context.Context) ([]ledger.CheckedOutItem, error)
}

type thresholdSource interface {
	ThresholdHours(ctx context.Context) int
}

type gauge interface {
	SetOverdue(n int)
}

// MonitorParams wires the monitor's collaborators. Thresholds and Gauge are optional.
type MonitorParams struct {
	Ledger     checkedOutSource
	Thresholds thresholdSource
	Notifier   notify.Notifier
	Gauge      gauge
	Logger     *logger.Logger
	Clock      func() time.Time
}

// Monitor classifies checked-out items against the configured threshold. It is a cron job;
// the threshold is re-read on every run.
type Monitor struct {
	ledger     checkedOutSource
	thresholds thresholdSource
	notifier   notify.Notifier
	gauge      gauge
	logg       *logger.Logger
	now        func() time.Time
}

func NewMonitor(p MonitorParams) *Monitor {
	m := &Monitor{
		ledger:     p.Ledger,
		thresholds: p.Thresholds,
		notifier:   p.Notifier,
		gauge:      p.Gauge,
		logg:       p.Logger,
		now:        p.Clock,
	}
	if m.notifier == nil {
		m.notifier = notify.Nop{}
	}
	if m.logg == nil {
		m.logg = logger.Nop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

func (m *Monitor) Name() string { return jobName }

// ThresholdHours returns the active threshold.
func (m *Monitor) ThresholdHours(ctx context.Context) int {
	if m.thresholds == nil {
		return DefaultThresholdHours
	}
	if h := m.thresholds.ThresholdHours(ctx); h > 0 {
		return h
	}
	return DefaultThresholdHours
}

// Check returns the currently overdue items without notifying anyone.
func (m *Monitor) Check(ctx context.Context) ([]Item, int, error) {
	hours := m.ThresholdHours(ctx)
	items, err := m.ledger.CheckedOutItems(ctx)
	if err != nil {
		return nil, hours, fmt.Errorf("load checked out items: %w", err)
	}
	return Classify(items, m.now(), time.Duration(hours)*time.Hour), hours, nil
}

// Departments returns the per-department rollup of the overdue set.
func (m *Monitor) Departments(ctx context.Context) ([]DepartmentAlert, error) {
	items, _, err := m.Check(ctx)
	if err != nil {
		return nil, err
	}
	return Rollup(items), nil
}

// Run performs one scheduled check. A non-empty overdue set produces exactly one alert;
// the same items are alerted again on the next run while they stay overdue.
func (m *Monitor) Run(ctx context.Context) error {
	items, hours, err := m.Check(ctx)
	if err != nil {
		return err
	}
	if m.gauge != nil {
		m.gauge.SetOverdue(len(items))
	}
	if len(items) == 0 {
		return nil
	}

	m.notifier.Notify(ctx, notify.Notification{
		Topic: notify.TopicOverdueAlert,
		At:    m.now(),
		Payload: Alert{
			Type:           "overdue_items",
			Count:          len(items),
			Items:          items,
			ThresholdHours: hours,
		},
	})
	ctx = m.logg.WithFields(ctx, map[string]any{"count": len(items), "threshold_hours": hours})
	m.logg.Info(ctx, "overdue alert sent")
	return nil
}
