package repository

import (
	"context"
	"errors"
	"testing"
)

func TestDebitRejectedWhenBalanceTooLow(t *testing.T) {
	ledger := NewMemoryTokenLedger()
	if err := ledger.SetBalance("user-1", 2.5); err != nil {
		t.Fatalf("seed: %v", err)
	}

	applied, err := ledger.Debit(context.Background(), "user-1", 3)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if applied {
		t.Fatalf("debit above balance must be rejected")
	}

	balance, _ := ledger.Balance(context.Background(), "user-1")
	if balance != 2.5 {
		t.Fatalf("rejected debit must not change balance, got %.2f", balance)
	}
}

func TestFractionalDebitAndCredit(t *testing.T) {
	ledger := NewMemoryTokenLedger()
	if err := ledger.SetBalance("user-1", 1); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for i := 0; i < 3; i++ {
		applied, err := ledger.Debit(context.Background(), "user-1", 0.2)
		if err != nil || !applied {
			t.Fatalf("debit %d: applied=%v err=%v", i, applied, err)
		}
	}
	if err := ledger.Credit(context.Background(), "user-1", 0.1); err != nil {
		t.Fatalf("credit: %v", err)
	}

	balance, _ := ledger.Balance(context.Background(), "user-1")
	if balance < 0.49 || balance > 0.51 {
		t.Fatalf("expected balance near 0.5, got %.4f", balance)
	}
}

func TestLedgerRejectsNegativeAmounts(t *testing.T) {
	ledger := NewMemoryTokenLedger()
	if err := ledger.SetBalance("user-1", 5); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := ledger.Debit(context.Background(), "user-1", -1); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount from debit, got %v", err)
	}
	if err := ledger.Credit(context.Background(), "user-1", -1); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount from credit, got %v", err)
	}
}

func TestLedgerUnknownUser(t *testing.T) {
	ledger := NewMemoryTokenLedger()

	if _, err := ledger.Balance(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := ledger.Debit(context.Background(), "ghost", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
