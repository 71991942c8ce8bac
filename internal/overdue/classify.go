// internal/overdue/classify.go
package overdue

import (
	"sort"
	"time"

	"scantrack/internal/ledger"
)

// Classify returns the items whose elapsed time since check-out is strictly greater than
// threshold, in input order.
func Classify(items []ledger.CheckedOutItem, now time.Time, threshold time.Duration) []Item {
	out := make([]Item, 0)
	for _, it := range items {
		elapsed := now.Sub(it.CheckedOutAt)
		if elapsed <= threshold {
			continue
		}
		out = append(out, Item{
			Barcode:      it.Barcode,
			Department:   it.Department,
			CheckedOutAt: it.CheckedOutAt,
			Elapsed:      elapsed,
			HoursOverdue: int64(elapsed / time.Hour),
		})
	}
	return out
}

// Rollup groups overdue items by department. Empty departments count as Unknown. The result
// is sorted by count descending, then by department name.
func Rollup(items []Item) []DepartmentAlert {
	byDept := make(map[string]*DepartmentAlert)
	for _, it := range items {
		dept := it.Department
		if dept == "" {
			dept = UnknownDepartment
		}
		entry, ok := byDept[dept]
		if !ok {
			entry = &DepartmentAlert{Department: dept}
			byDept[dept] = entry
		}
		entry.OverdueCount++
		if it.HoursOverdue > entry.OldestHours {
			entry.OldestHours = it.HoursOverdue
		}
	}

	out := make([]DepartmentAlert, 0, len(byDept))
	for _, entry := range byDept {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OverdueCount != out[j].OverdueCount {
			return out[i].OverdueCount > out[j].OverdueCount
		}
		return out[i].Department < out[j].Department
	})
	return out
}
