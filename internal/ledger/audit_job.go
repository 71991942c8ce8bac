// internal/ledger/audit_job.go
package ledger

import (
	"context"
	"strings"

	"scantrack/pkg/logger"
)

const auditJobName = "ledger-audit"

type driftObserver interface {
	SetLedgerDrift(n int)
}

// AuditJob periodically checks that the cache still matches the log. It reports drift and
// leaves repair to an operator.
type AuditJob struct {
	ledger   Service
	logg     *logger.Logger
	observer driftObserver
}

func NewAuditJob(ledger Service, logg *logger.Logger, observer driftObserver) *AuditJob {
	if logg == nil {
		logg = logger.Nop()
	}
	return &AuditJob{ledger: ledger, logg: logg, observer: observer}
}

func (j *AuditJob) Name() string { return auditJobName }

func (j *AuditJob) Run(ctx context.Context) error {
	report, err := j.ledger.Audit(ctx)
	if err != nil {
		return err
	}
	drift := len(report.Missing) + len(report.Stale)
	if j.observer != nil {
		j.observer.SetLedgerDrift(drift)
	}
	if report.Consistent() {
		return nil
	}

	ctx = j.logg.WithFields(ctx, map[string]any{
		"missing": strings.Join(report.Missing, ","),
		"stale":   strings.Join(report.Stale, ","),
	})
	j.logg.Warn(ctx, "ledger cache drifted from log")
	return nil
}
