package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jungeol66104/firework-web-sub001/internal/domain"
)

type PostgresJobsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresJobsRepository(pool *pgxpool.Pool) *PostgresJobsRepository {
	return &PostgresJobsRepository{pool: pool}
}

func (r *PostgresJobsRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO jobs (
			id,
			user_id,
			interview_id,
			kind,
			status,
			input,
			result,
			error_message,
			attempts,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		job.ID,
		job.UserID,
		job.InterviewID,
		string(job.Kind),
		string(job.Status),
		job.Input,
		job.Result,
		job.ErrorMessage,
		job.Attempts,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *PostgresJobsRepository) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	var (
		job    domain.Job
		kind   string
		status string
		input  []byte
		result []byte
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, interview_id, kind, status, input, result, error_message, attempts, created_at, updated_at, completed_at
		FROM jobs
		WHERE id = $1
	`, jobID).Scan(
		&job.ID,
		&job.UserID,
		&job.InterviewID,
		&kind,
		&status,
		&input,
		&result,
		&job.ErrorMessage,
		&job.Attempts,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query job: %w", err)
	}

	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	job.Input = json.RawMessage(input)
	job.Result = json.RawMessage(result)
	return &job, nil
}

// ClaimJob is a single conditional update so redelivered webhook payloads
// cannot claim the same job twice.
func (r *PostgresJobsRepository) ClaimJob(ctx context.Context, jobID string, attempt int) (bool, error) {
	command, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'processing',
			attempts = $2,
			updated_at = now()
		WHERE id = $1 AND status = 'queued'
	`, jobID, attempt+1)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	if command.RowsAffected() == 1 {
		return true, nil
	}

	// Distinguish "already claimed" from "no such job".
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, jobID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check job existence: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (r *PostgresJobsRepository) CompleteJob(ctx context.Context, jobID string, result []byte) error {
	return r.finish(ctx, jobID, domain.JobStatusCompleted, result, "")
}

func (r *PostgresJobsRepository) FailJob(ctx context.Context, jobID string, message string) error {
	return r.finish(ctx, jobID, domain.JobStatusFailed, nil, message)
}

func (r *PostgresJobsRepository) CancelJob(ctx context.Context, jobID string) error {
	return r.finish(ctx, jobID, domain.JobStatusFailed, nil, domain.CancelledMessage)
}

func (r *PostgresJobsRepository) finish(
	ctx context.Context,
	jobID string,
	status domain.JobStatus,
	result []byte,
	message string,
) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = $2,
			result = $3,
			error_message = $4,
			updated_at = now(),
			completed_at = now()
		WHERE id = $1 AND status IN ('queued','processing')
	`, jobID, string(status), result, message)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if command.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, jobID).Scan(&exists); err != nil {
			return fmt.Errorf("check job existence: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrTerminal
	}
	return nil
}

func (r *PostgresJobsRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	command, err := r.pool.Exec(ctx, `
		DELETE FROM jobs
		WHERE status IN ('completed','failed') AND completed_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired jobs: %w", err)
	}
	return int(command.RowsAffected()), nil
}
