package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTokenLedger stores balances on the profiles table. Debit is one
// conditional update, never a read-then-write round trip.
type PostgresTokenLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresTokenLedger(pool *pgxpool.Pool) *PostgresTokenLedger {
	return &PostgresTokenLedger{pool: pool}
}

func (l *PostgresTokenLedger) Balance(ctx context.Context, userID string) (float64, error) {
	var balance float64
	err := l.pool.QueryRow(ctx, `SELECT tokens FROM profiles WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

func (l *PostgresTokenLedger) Debit(ctx context.Context, userID string, amount float64) (bool, error) {
	if amount < 0 {
		return false, ErrNegativeAmount
	}

	command, err := l.pool.Exec(ctx, `
		UPDATE profiles
		SET tokens = tokens - $2
		WHERE id = $1 AND tokens >= $2
	`, userID, amount)
	if err != nil {
		return false, fmt.Errorf("debit tokens: %w", err)
	}
	if command.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := l.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check profile existence: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (l *PostgresTokenLedger) Credit(ctx context.Context, userID string, amount float64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}

	command, err := l.pool.Exec(ctx, `
		UPDATE profiles
		SET tokens = tokens + $2
		WHERE id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("credit tokens: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
