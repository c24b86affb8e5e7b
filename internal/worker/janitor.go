package worker

import (
	"context"
	"log"
	"time"

	"github.com/jungeol66104/firework-web-sub001/internal/repository"
)

// Janitor periodically deletes terminal jobs older than the retention
// window. Versions and ledger entries are kept forever; only job records
// are transient.
type Janitor struct {
	jobs      repository.JobsRepository
	retention time.Duration
	interval  time.Duration
	logger    *log.Logger
}

func NewJanitor(jobs repository.JobsRepository, retention, interval time.Duration, logger *log.Logger) *Janitor {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{jobs: jobs, retention: retention, interval: interval, logger: logger}
}

func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.retention)
	deleted, err := j.jobs.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		if j.logger != nil {
			j.logger.Printf("job retention sweep failed: %v", err)
		}
		return
	}
	if deleted > 0 && j.logger != nil {
		j.logger.Printf("job retention sweep removed %d terminal jobs older than %s", deleted, j.retention)
	}
}
