// internal/overdue/domain.go
package overdue

import (
	"time"

	"scantrack/internal/departments"
)

// DefaultThresholdHours applies when settings hold no usable value.
const DefaultThresholdHours = 24

// UnknownDepartment labels items logged without a department in the rollup.
const UnknownDepartment = departments.UnknownDepartment

// Item is a checked-out barcode that has been out longer than the threshold.
type Item struct {
	Barcode      string        `json:"barcode"`
	Department   string        `json:"department"`
	CheckedOutAt time.Time     `json:"checked_out_time"`
	Elapsed      time.Duration `json:"-"`
	HoursOverdue int64         `json:"hours_overdue"`
}

// DepartmentAlert aggregates overdue items for one department.
type DepartmentAlert struct {
	Department   string `json:"department"`
	OverdueCount int    `json:"overdue_count"`
	OldestHours  int64  `json:"oldest_hours"`
}

// Alert is the payload of one overdue-alert notification.
type Alert struct {
	Type           string `json:"type"`
	Count          int    `json:"count"`
	Items          []Item `json:"items"`
	ThresholdHours int    `json:"threshold_hours"`
}
