package service

import (
	"encoding/json"
	"testing"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
)

func TestCostForFixedKinds(t *testing.T) {
	cases := []struct {
		kind domain.JobKind
		want float64
	}{
		{domain.JobKindQuestionsGenerated, 3.0},
		{domain.JobKindQuestionEdited, 0.1},
		{domain.JobKindQuestionRegenerated, 0.1},
		{domain.JobKindAnswerEdited, 0.2},
		{domain.JobKindAnswerRegenerated, 0.2},
	}
	for _, tc := range cases {
		got, err := CostFor(tc.kind, nil)
		if err != nil {
			t.Fatalf("%s: %v", tc.kind, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %.2f, got %.2f", tc.kind, tc.want, got)
		}
	}
}

func TestCostForBulkAnswersScalesWithSelection(t *testing.T) {
	full, err := CostFor(domain.JobKindAnswersGenerated, nil)
	if err != nil {
		t.Fatalf("full selection: %v", err)
	}
	if full != 6.0 {
		t.Fatalf("expected 6.0 for all slots, got %.2f", full)
	}

	input, _ := json.Marshal(domain.BulkInput{SelectedSlots: []domain.TargetItem{
		{Category: domain.CategoryGeneralPersonality, Index: 0},
		{Category: domain.CategoryJobCompetency, Index: 3},
		{Category: domain.CategoryCompanyMotivation, Index: 9},
	}})
	partial, err := CostFor(domain.JobKindAnswersGenerated, input)
	if err != nil {
		t.Fatalf("partial selection: %v", err)
	}
	// 6.0 * 3/30
	if partial < 0.599 || partial > 0.601 {
		t.Fatalf("expected 0.6 for three slots, got %.4f", partial)
	}
}

func TestCostForUnknownKind(t *testing.T) {
	if _, err := CostFor(domain.JobKind("bogus"), nil); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestCostForRejectsMalformedBulkInput(t *testing.T) {
	if _, err := CostFor(domain.JobKindAnswersGenerated, json.RawMessage(`{"selected_slots":"no"}`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
