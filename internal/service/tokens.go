package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
	"github.com/jungeol66104/firework-web-sub001/internal/repository"
)

var ErrInvalidJobInput = errors.New("invalid job input")

// Token costs per job kind. Bulk answers scale with the number of selected
// question slots; single-slot operations have fixed fractional costs that
// must never be rounded.
const (
	costBulkQuestions   = 3.0
	costBulkAnswersFull = 6.0
	costSingleQuestion  = 0.1
	costSingleAnswer    = 0.2
)

var totalSlots = len(domain.Categories) * domain.SlotsPerCategory

type TokenService struct {
	ledger repository.TokenLedger
}

func NewTokenService(ledger repository.TokenLedger) *TokenService {
	return &TokenService{ledger: ledger}
}

// CostFor computes the fixed token cost of a job from its kind and input
// payload.
func CostFor(kind domain.JobKind, input json.RawMessage) (float64, error) {
	switch kind {
	case domain.JobKindQuestionsGenerated:
		return costBulkQuestions, nil
	case domain.JobKindAnswersGenerated:
		var bulk domain.BulkInput
		if len(input) > 0 {
			if err := json.Unmarshal(input, &bulk); err != nil {
				return 0, fmt.Errorf("%w: decode bulk input: %v", ErrInvalidJobInput, err)
			}
		}
		selected := len(bulk.SelectedSlots)
		if selected == 0 {
			selected = totalSlots
		}
		return costBulkAnswersFull * float64(selected) / float64(totalSlots), nil
	case domain.JobKindQuestionEdited, domain.JobKindQuestionRegenerated:
		return costSingleQuestion, nil
	case domain.JobKindAnswerEdited, domain.JobKindAnswerRegenerated:
		return costSingleAnswer, nil
	default:
		return 0, fmt.Errorf("no cost defined for job kind %q", kind)
	}
}

func (s *TokenService) Balance(ctx context.Context, userID string) (float64, error) {
	return s.ledger.Balance(ctx, userID)
}

// Charge debits the cost upfront. It returns false when the balance does
// not cover the amount; the balance is untouched in that case.
func (s *TokenService) Charge(ctx context.Context, userID string, amount float64) (bool, error) {
	if amount == 0 {
		return true, nil
	}
	return s.ledger.Debit(ctx, userID, amount)
}

// Refund credits back a previously charged amount. Every failure branch
// after a charge must pass through here before the job is marked failed.
func (s *TokenService) Refund(ctx context.Context, userID string, amount float64) error {
	if amount == 0 {
		return nil
	}
	return s.ledger.Credit(ctx, userID, amount)
}

// Credit fulfills an external token purchase.
func (s *TokenService) Credit(ctx context.Context, userID string, amount float64) error {
	return s.ledger.Credit(ctx, userID, amount)
}
