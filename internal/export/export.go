// internal/export/export.go
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"scantrack/internal/ledger"
	"scantrack/pkg/eventstore"
)

// DisplayLayout is the timestamp format used in spreadsheets and CSV files.
const DisplayLayout = "2006-01-02 15:04:05"

const checkedOutSheet = "Checked out"

// pageSize bounds how many events a full export holds in memory at once.
const pageSize = 500

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type dataSource interface {
	RecentEvents(ctx context.Context, limit int) ([]eventstore.Event, error)
	StreamEvents(ctx context.Context, afterID int64, batchSize int) ([]eventstore.Event, error)
	CheckedOutItems(ctx context.Context) ([]ledger.CheckedOutItem, error)
}

type nameLookup interface {
	Names(ctx context.Context, barcodes []string) (map[string]string, error)
}

// Exporter renders the scan log and the checked-out report. Checked-out data always comes
// from the log-derived query.
type Exporter struct {
	source dataSource
	names  nameLookup
	loc    *time.Location
}

// NewExporter builds an exporter. names may be nil; times render in loc (Local when nil).
func NewExporter(source dataSource, names nameLookup, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{source: source, names: names, loc: loc}
}

// LogsCSV writes events with a UTF-8 BOM so spreadsheet programs detect the encoding.
// With limit > 0 it writes the newest limit events, newest first. limit <= 0 writes the
// whole log in insertion order, one page at a time.
func (e *Exporter) LogsCSV(ctx context.Context, w io.Writer, limit int) error {
	cw, err := bomWriter(w)
	if err != nil {
		return err
	}
	if err := cw.Write([]string{"Timestamp", "Barcode", "Action", "Department"}); err != nil {
		return err
	}
	err = e.eachEvent(ctx, limit, func(ev eventstore.Event) error {
		return cw.Write([]string{e.format(ev.Timestamp), ev.Barcode, string(ev.Action), ev.Department})
	})
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// LogsJSON writes the events as an indented JSON array, in the same order as LogsCSV.
func (e *Exporter) LogsJSON(ctx context.Context, w io.Writer, limit int) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	n := 0
	err := e.eachEvent(ctx, limit, func(ev eventstore.Event) error {
		body, err := json.MarshalIndent(ev, "  ", "  ")
		if err != nil {
			return err
		}
		sep := ",\n  "
		if n == 0 {
			sep = "\n  "
		}
		n++
		if _, err := io.WriteString(w, sep); err != nil {
			return err
		}
		_, err = w.Write(body)
		return err
	})
	if err != nil {
		return err
	}
	closing := "]\n"
	if n > 0 {
		closing = "\n]\n"
	}
	_, err = io.WriteString(w, closing)
	return err
}

func (e *Exporter) eachEvent(ctx context.Context, limit int, fn func(eventstore.Event) error) error {
	if limit > 0 {
		events, err := e.source.RecentEvents(ctx, limit)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if err := fn(ev); err != nil {
				return err
			}
		}
		return nil
	}

	var after int64
	for {
		page, err := e.source.StreamEvents(ctx, after, pageSize)
		if err != nil {
			return err
		}
		for _, ev := range page {
			if err := fn(ev); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
		after = page[len(page)-1].ID
	}
}

// CheckedOutCSV writes the currently checked-out items, oldest first.
func (e *Exporter) CheckedOutCSV(ctx context.Context, w io.Writer) error {
	items, err := e.source.CheckedOutItems(ctx)
	if err != nil {
		return err
	}
	cw, err := bomWriter(w)
	if err != nil {
		return err
	}
	if err := cw.Write([]string{"Barcode", "Department", "Checked out"}); err != nil {
		return err
	}
	for _, it := range items {
		if err := cw.Write([]string{it.Barcode, it.Department, e.format(it.CheckedOutAt)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CheckedOutXLSX writes the checked-out report as a workbook, with item names when known.
func (e *Exporter) CheckedOutXLSX(ctx context.Context, w io.Writer) error {
	items, err := e.source.CheckedOutItems(ctx)
	if err != nil {
		return err
	}
	names, err := e.lookupNames(ctx, items)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", checkedOutSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headings := []string{"Barcode", "Name", "Department", "Checked out"}
	for i, h := range headings {
		if err := setCell(f, i+1, 1, h); err != nil {
			return err
		}
	}
	for row, it := range items {
		values := []any{it.Barcode, names[it.Barcode], it.Department, e.format(it.CheckedOutAt)}
		for col, v := range values {
			if err := setCell(f, col+1, row+2, v); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(checkedOutSheet, "A", "D", 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (e *Exporter) lookupNames(ctx context.Context, items []ledger.CheckedOutItem) (map[string]string, error) {
	if e.names == nil || len(items) == 0 {
		return map[string]string{}, nil
	}
	barcodes := make([]string, 0, len(items))
	for _, it := range items {
		barcodes = append(barcodes, it.Barcode)
	}
	names, err := e.names.Names(ctx, barcodes)
	if err != nil {
		return nil, fmt.Errorf("lookup item names: %w", err)
	}
	return names, nil
}

func (e *Exporter) format(t time.Time) string {
	return t.In(e.loc).Format(DisplayLayout)
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(checkedOutSheet, cell, value); err != nil {
		return fmt.Errorf("set cell %s: %w", cell, err)
	}
	return nil
}

func bomWriter(w io.Writer) (*csv.Writer, error) {
	if _, err := w.Write(utf8BOM); err != nil {
		return nil, fmt.Errorf("write bom: %w", err)
	}
	return csv.NewWriter(w), nil
}
