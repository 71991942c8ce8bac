// internal/ledger/domain.go
package ledger

import (
	"errors"
	"time"

	"scantrack/pkg/eventstore"
)

var (
	ErrUnknownDepartment = errors.New("barcode matches no department prefix")
	ErrEmptyBarcode      = errors.New("barcode is required")
)

// Result describes one recorded transaction.
type Result struct {
	EventID    int64             `json:"event_id"`
	Barcode    string            `json:"barcode"`
	Action     eventstore.Action `json:"action"`
	Department string            `json:"department"`
	Timestamp  time.Time         `json:"timestamp"`
}

// CheckedOutItem is a barcode whose latest logged action is a check-out.
type CheckedOutItem struct {
	EventID      int64     `json:"event_id"`
	Barcode      string    `json:"barcode"`
	Department   string    `json:"department"`
	CheckedOutAt time.Time `json:"checked_out_at"`
}

// AuditReport compares the in-memory cache with the log-derived checked-out set.
type AuditReport struct {
	CheckedOut int      `json:"checked_out"`
	Cached     int      `json:"cached"`
	Missing    []string `json:"missing,omitempty"`
	Stale      []string `json:"stale,omitempty"`
}

// Consistent reports whether cache and log agree.
func (r AuditReport) Consistent() bool {
	return len(r.Missing) == 0 && len(r.Stale) == 0
}
