package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
)

var (
	ErrNotFound = errors.New("resource not found")
	// ErrTerminal is returned when a write targets a job that already
	// reached completed or failed.
	ErrTerminal = errors.New("job already in terminal state")
)

// JobsRepository abstracts job persistence and the status transitions of
// the processing state machine. Claim is the idempotency gate: redelivered
// webhook payloads find the job already claimed or terminal and skip work.
type JobsRepository interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	// ClaimJob conditionally moves queued -> processing. It returns false
	// without mutation when the job is not in queued state.
	ClaimJob(ctx context.Context, jobID string, attempt int) (bool, error)
	CompleteJob(ctx context.Context, jobID string, result []byte) error
	FailJob(ctx context.Context, jobID string, message string) error
	// CancelJob forces queued/processing -> failed with the fixed
	// cancellation message. Terminal jobs are rejected with ErrTerminal.
	CancelJob(ctx context.Context, jobID string) error
	// DeleteTerminalBefore removes completed/failed jobs whose completion
	// predates the cutoff. Used by the retention janitor.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// MemoryJobsRepository stores jobs in memory for local development and tests.
type MemoryJobsRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

func NewMemoryJobsRepository() *MemoryJobsRepository {
	return &MemoryJobsRepository{jobs: make(map[string]*domain.Job)}
}

func (r *MemoryJobsRepository) CreateJob(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemoryJobsRepository) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (r *MemoryJobsRepository) ClaimJob(_ context.Context, jobID string, attempt int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return false, ErrNotFound
	}
	if job.Status != domain.JobStatusQueued {
		return false, nil
	}
	job.Status = domain.JobStatusProcessing
	job.Attempts = attempt + 1
	job.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryJobsRepository) CompleteJob(_ context.Context, jobID string, result []byte) error {
	return r.finish(jobID, domain.JobStatusCompleted, result, "")
}

func (r *MemoryJobsRepository) FailJob(_ context.Context, jobID string, message string) error {
	return r.finish(jobID, domain.JobStatusFailed, nil, message)
}

func (r *MemoryJobsRepository) CancelJob(_ context.Context, jobID string) error {
	return r.finish(jobID, domain.JobStatusFailed, nil, domain.CancelledMessage)
}

func (r *MemoryJobsRepository) finish(jobID string, status domain.JobStatus, result []byte, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status.Terminal() {
		return ErrTerminal
	}

	now := time.Now().UTC()
	job.Status = status
	job.ErrorMessage = message
	job.Result = append([]byte(nil), result...)
	job.UpdatedAt = now
	job.CompletedAt = &now
	return nil
}

func (r *MemoryJobsRepository) DeleteTerminalBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, job := range r.jobs {
		if !job.Status.Terminal() || job.CompletedAt == nil {
			continue
		}
		if job.CompletedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed, nil
}

// Jobs returns every stored job. Test helper.
func (r *MemoryJobsRepository) Jobs() []*domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		items = append(items, cloneJob(job))
	}
	return items
}

func cloneJob(job *domain.Job) *domain.Job {
	if job == nil {
		return nil
	}
	clone := *job
	clone.Input = append([]byte(nil), job.Input...)
	clone.Result = append([]byte(nil), job.Result...)
	if job.CompletedAt != nil {
		completedAt := *job.CompletedAt
		clone.CompletedAt = &completedAt
	}
	return &clone
}
