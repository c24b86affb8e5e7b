// Package quality defends the pipeline against malformed provider output.
// The generation client only requests a schema; nothing guarantees the
// returned text honors it.
package quality

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
)

var ErrInvalidShape = errors.New("output failed shape validation")

// ParseQuestionBundle decodes and validates a full three-category question
// bundle: every category present, exactly SlotsPerCategory non-empty strings.
func ParseQuestionBundle(text string) (domain.QuestionBundle, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var decoded map[string][]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode question bundle: %v", ErrInvalidShape, err)
	}

	bundle := make(domain.QuestionBundle, len(domain.Categories))
	for _, category := range domain.Categories {
		items, ok := decoded[category]
		if !ok {
			return nil, fmt.Errorf("%w: missing category %q", ErrInvalidShape, category)
		}
		if len(items) != domain.SlotsPerCategory {
			return nil, fmt.Errorf(
				"%w: category %q has %d items, want %d",
				ErrInvalidShape, category, len(items), domain.SlotsPerCategory,
			)
		}
		cleaned := make([]string, domain.SlotsPerCategory)
		for index, item := range items {
			trimmed := strings.TrimSpace(item)
			if trimmed == "" {
				return nil, fmt.Errorf("%w: empty question at (%s, %d)", ErrInvalidShape, category, index)
			}
			cleaned[index] = trimmed
		}
		bundle[category] = cleaned
	}
	return bundle, nil
}

// ParseAnswerLists decodes the per-category answer arrays returned for a
// bulk-answer job and checks each selected slot received a non-empty answer.
// The provider returns answers in the order the slots were listed per
// category; the result maps each requested slot to its answer text.
func ParseAnswerLists(text string, slots []domain.TargetItem) (map[domain.TargetItem]string, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var decoded map[string][]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode answer lists: %v", ErrInvalidShape, err)
	}

	perCategory := make(map[string][]domain.TargetItem)
	for _, slot := range slots {
		perCategory[slot.Category] = append(perCategory[slot.Category], slot)
	}

	answers := make(map[domain.TargetItem]string, len(slots))
	for category, categorySlots := range perCategory {
		items, ok := decoded[category]
		if !ok {
			return nil, fmt.Errorf("%w: missing category %q", ErrInvalidShape, category)
		}
		if len(items) != len(categorySlots) {
			return nil, fmt.Errorf(
				"%w: category %q has %d answers, want %d",
				ErrInvalidShape, category, len(items), len(categorySlots),
			)
		}
		for position, slot := range categorySlots {
			trimmed := strings.TrimSpace(items[position])
			if trimmed == "" {
				return nil, fmt.Errorf("%w: empty answer at (%s, %d)", ErrInvalidShape, slot.Category, slot.Index)
			}
			answers[slot] = trimmed
		}
	}
	return answers, nil
}

// ParseSingleField decodes an object carrying one required non-empty string
// field ("question" or "answer").
func ParseSingleField(text, field string) (string, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return "", err
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%w: decode object: %v", ErrInvalidShape, err)
	}

	fieldValue, ok := decoded[field]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrInvalidShape, field)
	}
	var value string
	if err := json.Unmarshal(fieldValue, &value); err != nil {
		return "", fmt.Errorf("%w: field %q is not a string", ErrInvalidShape, field)
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: field %q is empty", ErrInvalidShape, field)
	}
	return trimmed, nil
}

// ValidateBundles checks a version's bundles against the fixed shape before
// persistence: three categories, ten slots each, questions non-empty.
func ValidateBundles(questions domain.QuestionBundle, answers domain.AnswerBundle) error {
	if len(questions) != len(domain.Categories) || len(answers) != len(domain.Categories) {
		return fmt.Errorf("%w: bundle must have exactly %d categories", ErrInvalidShape, len(domain.Categories))
	}
	for _, category := range domain.Categories {
		questionItems, ok := questions[category]
		if !ok || len(questionItems) != domain.SlotsPerCategory {
			return fmt.Errorf("%w: questions for %q must have %d slots", ErrInvalidShape, category, domain.SlotsPerCategory)
		}
		answerItems, ok := answers[category]
		if !ok || len(answerItems) != domain.SlotsPerCategory {
			return fmt.Errorf("%w: answers for %q must have %d slots", ErrInvalidShape, category, domain.SlotsPerCategory)
		}
	}
	return nil
}

// ExtractJSON strips an optional markdown code fence and pulls the JSON
// object out of the model output.
func ExtractJSON(text string) ([]byte, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty model output", ErrInvalidShape)
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = stripCodeFence(trimmed)
	}

	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
		return []byte(trimmed), nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		candidate := trimmed[start : end+1]
		if err := json.Unmarshal([]byte(candidate), &decoded); err == nil {
			return []byte(candidate), nil
		}
	}

	return nil, fmt.Errorf("%w: model output is not valid JSON", ErrInvalidShape)
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimPrefix(trimmed, "json")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
