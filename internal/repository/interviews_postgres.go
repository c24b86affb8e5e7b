package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jungeol66104/firework-web-sub001/internal/domain"
)

type PostgresInterviewsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresInterviewsRepository(pool *pgxpool.Pool) *PostgresInterviewsRepository {
	return &PostgresInterviewsRepository{pool: pool}
}

func (r *PostgresInterviewsRepository) GetInterview(ctx context.Context, interviewID string) (*domain.Interview, error) {
	var interview domain.Interview
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, company_name, job_title, job_posting, resume, comment, created_at
		FROM interviews
		WHERE id = $1
	`, interviewID).Scan(
		&interview.ID,
		&interview.UserID,
		&interview.CompanyName,
		&interview.JobTitle,
		&interview.JobPosting,
		&interview.Resume,
		&interview.Comment,
		&interview.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query interview: %w", err)
	}
	return &interview, nil
}

type PostgresNotificationsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresNotificationsRepository(pool *pgxpool.Pool) *PostgresNotificationsRepository {
	return &PostgresNotificationsRepository{pool: pool}
}

func (r *PostgresNotificationsRepository) CreateNotification(ctx context.Context, notification *domain.Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, message, version_id, read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		notification.ID,
		notification.UserID,
		string(notification.Type),
		notification.Message,
		notification.VersionID,
		notification.Read,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
