package service

import (
	"context"
	"fmt"
	"log"

	"github.com/jungeol66104/firework-web-sub001/internal/ai"
	"github.com/jungeol66104/firework-web-sub001/internal/domain"
	"github.com/jungeol66104/firework-web-sub001/internal/prompt"
	"github.com/jungeol66104/firework-web-sub001/internal/quality"
)

// GenerationService pairs the generation client with prompt rendering and
// output parsing. It returns parsed, shape-valid content; callers never see
// raw model text.
type GenerationService struct {
	client ai.TextGenerator
	logger *log.Logger
}

func NewGenerationService(client ai.TextGenerator, logger *log.Logger) *GenerationService {
	return &GenerationService{client: client, logger: logger}
}

const (
	bundleTemperature = 0.7
	slotTemperature   = 0.7

	bundleMaxOutputTokens = 8192
	slotMaxOutputTokens   = 2048
)

// QuestionBundle generates a full three-category question set.
func (s *GenerationService) QuestionBundle(
	ctx context.Context,
	interview prompt.InterviewContext,
	comment string,
) (domain.QuestionBundle, string, error) {
	rendered, err := prompt.BulkQuestions(interview, comment)
	if err != nil {
		return nil, "", err
	}

	result, err := s.client.Generate(ctx, ai.GenerateRequest{
		Prompt:          rendered,
		ResponseSchema:  ai.BundleSchema(domain.Categories, domain.SlotsPerCategory),
		Temperature:     bundleTemperature,
		MaxOutputTokens: bundleMaxOutputTokens,
	})
	if err != nil {
		return nil, "", fmt.Errorf("generate questions: %w", err)
	}

	bundle, err := quality.ParseQuestionBundle(result.Text)
	if err != nil {
		s.logf("question bundle rejected model=%s: %v", result.ModelID, err)
		return nil, result.ModelID, err
	}
	return bundle, result.ModelID, nil
}

// Answers generates answers for the selected question slots.
func (s *GenerationService) Answers(
	ctx context.Context,
	interview prompt.InterviewContext,
	questions domain.QuestionBundle,
	slots []domain.TargetItem,
	comment string,
) (map[domain.TargetItem]string, string, error) {
	rendered, err := prompt.BulkAnswers(interview, questions, slots, comment)
	if err != nil {
		return nil, "", err
	}

	categories := make([]string, 0, len(domain.Categories))
	perCategory := make(map[string]int)
	for _, slot := range slots {
		perCategory[slot.Category]++
	}
	for _, category := range domain.Categories {
		if perCategory[category] > 0 {
			categories = append(categories, category)
		}
	}

	result, err := s.client.Generate(ctx, ai.GenerateRequest{
		Prompt:          rendered,
		ResponseSchema:  ai.BundleSchema(categories, 0),
		Temperature:     bundleTemperature,
		MaxOutputTokens: bundleMaxOutputTokens,
	})
	if err != nil {
		return nil, "", fmt.Errorf("generate answers: %w", err)
	}

	answers, err := quality.ParseAnswerLists(result.Text, slots)
	if err != nil {
		s.logf("answer lists rejected model=%s: %v", result.ModelID, err)
		return nil, result.ModelID, err
	}
	return answers, result.ModelID, nil
}

// QuestionSlot generates or revises one question.
func (s *GenerationService) QuestionSlot(
	ctx context.Context,
	interview prompt.InterviewContext,
	category string,
	current string,
	comment string,
	revise bool,
) (string, string, error) {
	rendered, err := prompt.SingleQuestion(interview, category, current, comment, revise)
	if err != nil {
		return "", "", err
	}

	result, err := s.client.Generate(ctx, ai.GenerateRequest{
		Prompt:          rendered,
		ResponseSchema:  ai.SingleFieldSchema("question"),
		Temperature:     slotTemperature,
		MaxOutputTokens: slotMaxOutputTokens,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate question: %w", err)
	}

	question, err := quality.ParseSingleField(result.Text, "question")
	if err != nil {
		s.logf("question slot rejected model=%s: %v", result.ModelID, err)
		return "", result.ModelID, err
	}
	return question, result.ModelID, nil
}

// AnswerSlot generates or revises one answer.
func (s *GenerationService) AnswerSlot(
	ctx context.Context,
	interview prompt.InterviewContext,
	category string,
	question string,
	current string,
	comment string,
	revise bool,
) (string, string, error) {
	rendered, err := prompt.SingleAnswer(interview, category, question, current, comment, revise)
	if err != nil {
		return "", "", err
	}

	result, err := s.client.Generate(ctx, ai.GenerateRequest{
		Prompt:          rendered,
		ResponseSchema:  ai.SingleFieldSchema("answer"),
		Temperature:     slotTemperature,
		MaxOutputTokens: slotMaxOutputTokens,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate answer: %w", err)
	}

	answer, err := quality.ParseSingleField(result.Text, "answer")
	if err != nil {
		s.logf("answer slot rejected model=%s: %v", result.ModelID, err)
		return "", result.ModelID, err
	}
	return answer, result.ModelID, nil
}

func (s *GenerationService) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
