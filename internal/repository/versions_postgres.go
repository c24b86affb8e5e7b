package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jungeol66104/firework-web-sub001/internal/domain"
)

type PostgresVersionsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresVersionsRepository(pool *pgxpool.Pool) *PostgresVersionsRepository {
	return &PostgresVersionsRepository{pool: pool}
}

// CreateVersion clears the interview's current default and inserts the new
// version inside one transaction.
func (r *PostgresVersionsRepository) CreateVersion(ctx context.Context, version *domain.QAVersion) error {
	questions, answers, targetItems, err := encodeVersionPayloads(version)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin version tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if version.IsDefault {
		if _, err := tx.Exec(ctx, `
			UPDATE qa_versions
			SET is_default = false
			WHERE interview_id = $1 AND is_default
		`, version.InterviewID); err != nil {
			return fmt.Errorf("clear default version: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO qa_versions (
			id,
			interview_id,
			name,
			kind,
			questions,
			answers,
			is_default,
			parent_id,
			target_items,
			tokens_used,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		version.ID,
		version.InterviewID,
		version.Name,
		string(version.Kind),
		questions,
		answers,
		version.IsDefault,
		version.ParentID,
		targetItems,
		version.TokensUsed,
		version.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit version tx: %w", err)
	}
	return nil
}

func (r *PostgresVersionsRepository) GetVersion(ctx context.Context, versionID string) (*domain.QAVersion, error) {
	return r.queryOne(ctx, `
		SELECT id, interview_id, name, kind, questions, answers, is_default, parent_id, target_items, tokens_used, created_at
		FROM qa_versions
		WHERE id = $1
	`, versionID)
}

func (r *PostgresVersionsRepository) GetDefault(ctx context.Context, interviewID string) (*domain.QAVersion, error) {
	return r.queryOne(ctx, `
		SELECT id, interview_id, name, kind, questions, answers, is_default, parent_id, target_items, tokens_used, created_at
		FROM qa_versions
		WHERE interview_id = $1 AND is_default
	`, interviewID)
}

func (r *PostgresVersionsRepository) ListVersions(ctx context.Context, interviewID string) ([]*domain.QAVersion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, interview_id, name, kind, questions, answers, is_default, parent_id, target_items, tokens_used, created_at
		FROM qa_versions
		WHERE interview_id = $1
		ORDER BY created_at ASC
	`, interviewID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.QAVersion, 0)
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, version)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate versions: %w", rows.Err())
	}
	return items, nil
}

// SetDefault performs the same two-step swap as CreateVersion, used for
// promoting an old version outside the job pipeline.
func (r *PostgresVersionsRepository) SetDefault(ctx context.Context, versionID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin promote tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var interviewID string
	if err := tx.QueryRow(ctx, `
		SELECT interview_id FROM qa_versions WHERE id = $1
	`, versionID).Scan(&interviewID); err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("load version interview: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE qa_versions
		SET is_default = false
		WHERE interview_id = $1 AND is_default
	`, interviewID); err != nil {
		return fmt.Errorf("clear default version: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE qa_versions
		SET is_default = true
		WHERE id = $1
	`, versionID); err != nil {
		return fmt.Errorf("set default version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit promote tx: %w", err)
	}
	return nil
}

func (r *PostgresVersionsRepository) queryOne(ctx context.Context, query string, arg any) (*domain.QAVersion, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query version: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return nil, fmt.Errorf("query version: %w", rows.Err())
		}
		return nil, ErrNotFound
	}
	return scanVersion(rows)
}

func scanVersion(rows pgx.Rows) (*domain.QAVersion, error) {
	var (
		version     domain.QAVersion
		kind        string
		questions   []byte
		answers     []byte
		targetItems []byte
	)
	if err := rows.Scan(
		&version.ID,
		&version.InterviewID,
		&version.Name,
		&kind,
		&questions,
		&answers,
		&version.IsDefault,
		&version.ParentID,
		&targetItems,
		&version.TokensUsed,
		&version.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan version: %w", err)
	}

	version.Kind = domain.VersionKind(kind)
	if err := json.Unmarshal(questions, &version.Questions); err != nil {
		return nil, fmt.Errorf("decode questions bundle: %w", err)
	}
	if err := json.Unmarshal(answers, &version.Answers); err != nil {
		return nil, fmt.Errorf("decode answers bundle: %w", err)
	}
	if len(targetItems) > 0 {
		if err := json.Unmarshal(targetItems, &version.TargetItems); err != nil {
			return nil, fmt.Errorf("decode target items: %w", err)
		}
	}
	return &version, nil
}

func encodeVersionPayloads(version *domain.QAVersion) ([]byte, []byte, []byte, error) {
	questions, err := json.Marshal(version.Questions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode questions bundle: %w", err)
	}
	answers, err := json.Marshal(version.Answers)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode answers bundle: %w", err)
	}
	targetItems, err := json.Marshal(version.TargetItems)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode target items: %w", err)
	}
	return questions, answers, targetItems, nil
}
