// internal/export/job.go
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"scantrack/pkg/logger"
)

const autoExportJobName = "auto-export"

type autoExportSettings interface {
	AutoExport(ctx context.Context) (bool, string)
}

// AutoExportJob writes dated log and checked-out CSV files into the configured export
// directory when auto export is switched on.
type AutoExportJob struct {
	exporter *Exporter
	settings autoExportSettings
	logg     *logger.Logger
	now      func() time.Time
}

func NewAutoExportJob(exporter *Exporter, settings autoExportSettings, logg *logger.Logger) *AutoExportJob {
	if logg == nil {
		logg = logger.Nop()
	}
	return &AutoExportJob{exporter: exporter, settings: settings, logg: logg, now: time.Now}
}

func (j *AutoExportJob) Name() string { return autoExportJobName }

func (j *AutoExportJob) Run(ctx context.Context) error {
	enabled, dir := j.settings.AutoExport(ctx)
	if !enabled {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	stamp := j.now().Format("20060102")
	logsPath := filepath.Join(dir, fmt.Sprintf("logs-%s.csv", stamp))
	outPath := filepath.Join(dir, fmt.Sprintf("checked-out-%s.csv", stamp))

	err := multierr.Combine(
		writeFile(logsPath, func(w io.Writer) error { return j.exporter.LogsCSV(ctx, w, 0) }),
		writeFile(outPath, func(w io.Writer) error { return j.exporter.CheckedOutCSV(ctx, w) }),
	)
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithField(ctx, "dir", dir), "auto export written")
	return nil
}

// writeFile renders into a temp file next to path and renames it into place.
func writeFile(path string, render func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = render(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
