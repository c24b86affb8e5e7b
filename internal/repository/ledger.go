package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrNegativeAmount = errors.New("ledger amount must be non-negative")

// TokenLedger tracks one non-negative token balance per user. Debit and
// Credit are each a single atomic operation so concurrent jobs for the same
// user cannot lose updates.
type TokenLedger interface {
	Balance(ctx context.Context, userID string) (float64, error)
	// Debit subtracts amount when the balance covers it and returns whether
	// the charge applied. A rejected debit leaves the balance untouched.
	Debit(ctx context.Context, userID string, amount float64) (bool, error)
	Credit(ctx context.Context, userID string, amount float64) error
}

// MemoryTokenLedger keeps balances in memory for local development and tests.
type MemoryTokenLedger struct {
	mu       sync.Mutex
	balances map[string]float64
}

func NewMemoryTokenLedger() *MemoryTokenLedger {
	return &MemoryTokenLedger{balances: make(map[string]float64)}
}

func (l *MemoryTokenLedger) Balance(_ context.Context, userID string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[userID]
	if !ok {
		return 0, ErrNotFound
	}
	return balance, nil
}

func (l *MemoryTokenLedger) Debit(_ context.Context, userID string, amount float64) (bool, error) {
	if amount < 0 {
		return false, ErrNegativeAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[userID]
	if !ok {
		return false, ErrNotFound
	}
	if balance < amount {
		return false, nil
	}
	l.balances[userID] = balance - amount
	return true, nil
}

func (l *MemoryTokenLedger) Credit(_ context.Context, userID string, amount float64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.balances[userID]; !ok {
		return ErrNotFound
	}
	l.balances[userID] += amount
	return nil
}

// SetBalance seeds a user balance. Test and bootstrap helper.
func (l *MemoryTokenLedger) SetBalance(userID string, balance float64) error {
	if balance < 0 {
		return fmt.Errorf("%w: %f", ErrNegativeAmount, balance)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = balance
	return nil
}
