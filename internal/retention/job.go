// internal/retention/job.go
package retention

import "context"

const jobName = "log-retention"

// Job archives completed transactions on the retention cadence.
type Job struct {
	service *Service
	days    int
}

func NewJob(service *Service, days int) *Job {
	if days <= 0 {
		days = DefaultDaysToKeep
	}
	return &Job{service: service, days: days}
}

func (j *Job) Name() string { return jobName }

func (j *Job) Run(ctx context.Context) error {
	_, err := j.service.Archive(ctx, j.days)
	return err
}
