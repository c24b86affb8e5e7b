package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jungeol66104/firework-web-sub001/internal/domain"
	"github.com/jungeol66104/firework-web-sub001/internal/prompt"
	"github.com/jungeol66104/firework-web-sub001/internal/quality"
	"github.com/jungeol66104/firework-web-sub001/internal/queue"
	"github.com/jungeol66104/firework-web-sub001/internal/repository"
	"github.com/jungeol66104/firework-web-sub001/internal/service"
)

// Failure classes surfaced to the webhook handler for status mapping.
var (
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrMissingInput       = errors.New("required input not found")
	ErrVersionNotSaved    = errors.New("version not saved")
)

type Dependencies struct {
	Jobs          repository.JobsRepository
	Tokens        *service.TokenService
	Interviews    repository.InterviewsRepository
	Versions      repository.VersionsRepository
	Notifications repository.NotificationsRepository
	Generation    *service.GenerationService
	Logger        *log.Logger
}

// Processor advances one job per webhook delivery from queued to a terminal
// state: claim, charge upfront, generate, persist a new default version,
// complete. Every failure branch after the charge refunds it, so a failed
// job always leaves the balance as if it had never run.
type Processor struct {
	jobs          repository.JobsRepository
	tokens        *service.TokenService
	interviews    repository.InterviewsRepository
	versions      repository.VersionsRepository
	notifications repository.NotificationsRepository
	generation    *service.GenerationService
	logger        *log.Logger
}

func NewProcessor(deps Dependencies) *Processor {
	return &Processor{
		jobs:          deps.Jobs,
		tokens:        deps.Tokens,
		interviews:    deps.Interviews,
		versions:      deps.Versions,
		notifications: deps.Notifications,
		generation:    deps.Generation,
		logger:        deps.Logger,
	}
}

// ProcessMessage handles one delivery. Redelivery of an already claimed or
// terminal job returns nil without side effects.
func (p *Processor) ProcessMessage(ctx context.Context, message domain.QueueMessage) error {
	claimed, err := p.jobs.ClaimJob(ctx, message.JobID, message.Attempt)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: job %s", ErrMissingInput, message.JobID)
		}
		return fmt.Errorf("claim job %s: %w", message.JobID, err)
	}
	if !claimed {
		p.logf("job %s already claimed or terminal, skipping redelivery", message.JobID)
		return nil
	}

	cost, err := service.CostFor(message.Kind, message.Input)
	if err != nil {
		_ = p.jobs.FailJob(ctx, message.JobID, err.Error())
		return err
	}

	charged, err := p.tokens.Charge(ctx, message.UserID, cost)
	if err != nil {
		_ = p.jobs.FailJob(ctx, message.JobID, "Failed to charge tokens")
		return fmt.Errorf("charge tokens: %w", err)
	}
	if !charged {
		_ = p.jobs.FailJob(ctx, message.JobID, "Insufficient tokens")
		return fmt.Errorf("%w: job %s needs %.2f tokens", ErrInsufficientTokens, message.JobID, cost)
	}

	version, processErr := p.buildVersion(ctx, message, cost)
	if processErr == nil {
		processErr = quality.ValidateBundles(version.Questions, version.Answers)
	}
	if processErr != nil {
		p.refund(ctx, message.UserID, cost)
		_ = p.jobs.FailJob(ctx, message.JobID, failureMessage(message.Kind, processErr))
		return processErr
	}

	if err := p.versions.CreateVersion(ctx, version); err != nil {
		p.refund(ctx, message.UserID, cost)
		_ = p.jobs.FailJob(ctx, message.JobID, persistFailureMessage(message.Kind))
		return fmt.Errorf("%w: job %s: %v", ErrVersionNotSaved, message.JobID, err)
	}

	result, err := json.Marshal(map[string]string{"version_id": version.ID})
	if err != nil {
		result = []byte(`{}`)
	}
	if err := p.jobs.CompleteJob(ctx, message.JobID, result); err != nil {
		if errors.Is(err, repository.ErrTerminal) {
			// Cancelled while the provider call was in flight. The version
			// stays but the user is not charged for a cancelled job.
			p.refund(ctx, message.UserID, cost)
			p.logf("job %s finished after cancellation, charge refunded", message.JobID)
			return nil
		}
		return fmt.Errorf("complete job %s: %w", message.JobID, err)
	}

	p.notify(ctx, message.UserID, version)
	p.logf("job processed kind=%s job_id=%s version_id=%s cost=%.2f", message.Kind, message.JobID, version.ID, cost)
	return nil
}

// buildVersion runs the kind-specific generate/merge step and assembles the
// new immutable snapshot. Returned versions always point at the previous
// default as parent and record exactly the slots that changed.
func (p *Processor) buildVersion(
	ctx context.Context,
	message domain.QueueMessage,
	cost float64,
) (*domain.QAVersion, error) {
	interview, err := p.interviews.GetInterview(ctx, message.InterviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: interview %s", ErrMissingInput, message.InterviewID)
		}
		return nil, fmt.Errorf("load interview: %w", err)
	}
	interviewCtx := prompt.FromInterview(interview)

	parent, err := p.versions.GetDefault(ctx, message.InterviewID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load default version: %w", err)
	}
	if message.Kind != domain.JobKindQuestionsGenerated && parent == nil {
		return nil, fmt.Errorf("%w: interview %s has no question set yet", ErrMissingInput, message.InterviewID)
	}

	switch message.Kind {
	case domain.JobKindQuestionsGenerated:
		return p.buildQuestionBundleVersion(ctx, message, interviewCtx, parent, cost)
	case domain.JobKindAnswersGenerated:
		return p.buildAnswersVersion(ctx, message, interviewCtx, parent, cost)
	default:
		return p.buildSingleSlotVersion(ctx, message, interviewCtx, parent, cost)
	}
}

func (p *Processor) buildQuestionBundleVersion(
	ctx context.Context,
	message domain.QueueMessage,
	interviewCtx prompt.InterviewContext,
	parent *domain.QAVersion,
	cost float64,
) (*domain.QAVersion, error) {
	var input domain.BulkInput
	if len(message.Input) > 0 {
		if err := json.Unmarshal(message.Input, &input); err != nil {
			return nil, fmt.Errorf("%w: decode bulk input: %v", service.ErrInvalidJobInput, err)
		}
	}

	questions, _, err := p.generation.QuestionBundle(ctx, interviewCtx, input.Comment)
	if err != nil {
		return nil, err
	}

	// A fresh question set invalidates every previous answer.
	targetItems := allSlots()
	return p.newVersion(message, domain.VersionKindQuestionsGenerated, questions, domain.EmptyAnswerBundle(), parent, targetItems, cost), nil
}

func (p *Processor) buildAnswersVersion(
	ctx context.Context,
	message domain.QueueMessage,
	interviewCtx prompt.InterviewContext,
	parent *domain.QAVersion,
	cost float64,
) (*domain.QAVersion, error) {
	var input domain.BulkInput
	if len(message.Input) > 0 {
		if err := json.Unmarshal(message.Input, &input); err != nil {
			return nil, fmt.Errorf("%w: decode bulk input: %v", service.ErrInvalidJobInput, err)
		}
	}

	slots := input.SelectedSlots
	if len(slots) == 0 {
		slots = allSlots()
	}
	for _, slot := range slots {
		if err := slot.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingInput, err)
		}
	}

	answers, _, err := p.generation.Answers(ctx, interviewCtx, parent.Questions, slots, input.Comment)
	if err != nil {
		return nil, err
	}

	merged := parent.Answers.Clone()
	for slot, text := range answers {
		value := text
		merged[slot.Category][slot.Index] = &value
	}
	return p.newVersion(message, domain.VersionKindAnswersGenerated, parent.Questions.Clone(), merged, parent, slots, cost), nil
}

func (p *Processor) buildSingleSlotVersion(
	ctx context.Context,
	message domain.QueueMessage,
	interviewCtx prompt.InterviewContext,
	parent *domain.QAVersion,
	cost float64,
) (*domain.QAVersion, error) {
	var input domain.EditInput
	if err := json.Unmarshal(message.Input, &input); err != nil {
		return nil, fmt.Errorf("%w: decode edit input: %v", service.ErrInvalidJobInput, err)
	}
	slot := domain.TargetItem{Category: input.Category, Index: input.Index}
	if err := slot.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingInput, err)
	}

	currentQuestion := parent.Questions[slot.Category][slot.Index]
	questions := parent.Questions.Clone()
	answers := parent.Answers.Clone()
	revise := message.Kind == domain.JobKindQuestionEdited || message.Kind == domain.JobKindAnswerEdited

	if message.Kind.TargetsQuestion() {
		question, _, err := p.generation.QuestionSlot(ctx, interviewCtx, slot.Category, currentQuestion, input.Comment, revise)
		if err != nil {
			return nil, err
		}
		questions[slot.Category][slot.Index] = question
		// A changed question invalidates its paired answer.
		answers[slot.Category][slot.Index] = nil
	} else {
		if currentQuestion == "" {
			return nil, fmt.Errorf("%w: no question at (%s, %d)", ErrMissingInput, slot.Category, slot.Index)
		}
		currentAnswer := ""
		if existing := parent.Answers[slot.Category][slot.Index]; existing != nil {
			currentAnswer = *existing
		}
		answer, _, err := p.generation.AnswerSlot(ctx, interviewCtx, slot.Category, currentQuestion, currentAnswer, input.Comment, revise)
		if err != nil {
			return nil, err
		}
		value := answer
		answers[slot.Category][slot.Index] = &value
	}

	return p.newVersion(message, domain.VersionKind(message.Kind), questions, answers, parent, []domain.TargetItem{slot}, cost), nil
}

func (p *Processor) newVersion(
	message domain.QueueMessage,
	kind domain.VersionKind,
	questions domain.QuestionBundle,
	answers domain.AnswerBundle,
	parent *domain.QAVersion,
	targetItems []domain.TargetItem,
	cost float64,
) *domain.QAVersion {
	var parentID *string
	if parent != nil {
		id := parent.ID
		parentID = &id
	}
	now := time.Now().UTC()
	return &domain.QAVersion{
		ID:          uuid.NewString(),
		InterviewID: message.InterviewID,
		Name:        versionName(kind, now),
		Kind:        kind,
		Questions:   questions,
		Answers:     answers,
		IsDefault:   true,
		ParentID:    parentID,
		TargetItems: targetItems,
		TokensUsed:  cost,
		CreatedAt:   now,
	}
}

func (p *Processor) refund(ctx context.Context, userID string, cost float64) {
	if err := p.tokens.Refund(ctx, userID, cost); err != nil {
		p.logf("refund of %.2f tokens for user %s failed: %v", cost, userID, err)
	}
}

func (p *Processor) notify(ctx context.Context, userID string, version *domain.QAVersion) {
	if p.notifications == nil {
		return
	}
	notification := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      domain.NotificationVersionCreated,
		Message:   fmt.Sprintf("New version ready: %s", version.Name),
		VersionID: version.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.notifications.CreateNotification(ctx, notification); err != nil {
		p.logf("notification create failed for version %s: %v", version.ID, err)
	}
}

func (p *Processor) logf(format string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Printf(format, args...)
}

func versionName(kind domain.VersionKind, at time.Time) string {
	var label string
	switch kind {
	case domain.VersionKindQuestionsGenerated:
		label = "Questions"
	case domain.VersionKindAnswersGenerated:
		label = "Answers"
	case domain.VersionKindQuestionEdited, domain.VersionKindQuestionRegenerated:
		label = "Question update"
	default:
		label = "Answer update"
	}
	return fmt.Sprintf("%s %s", label, at.Format("2006-01-02 15:04"))
}

func allSlots() []domain.TargetItem {
	items := make([]domain.TargetItem, 0, len(domain.Categories)*domain.SlotsPerCategory)
	for _, category := range domain.Categories {
		for index := 0; index < domain.SlotsPerCategory; index++ {
			items = append(items, domain.TargetItem{Category: category, Index: index})
		}
	}
	return items
}

func failureMessage(kind domain.JobKind, err error) string {
	if errors.Is(err, ErrMissingInput) {
		return err.Error()
	}
	if errors.Is(err, service.ErrInvalidJobInput) {
		return "Invalid job input"
	}
	subject := generationSubject(kind)
	if errors.Is(err, quality.ErrInvalidShape) {
		return fmt.Sprintf("Failed to generate valid JSON %s", subject)
	}
	return fmt.Sprintf("Failed to generate %s", subject)
}

func persistFailureMessage(kind domain.JobKind) string {
	return fmt.Sprintf("Failed to save %s to database", generationSubject(kind))
}

func generationSubject(kind domain.JobKind) string {
	switch kind {
	case domain.JobKindQuestionsGenerated:
		return "questions"
	case domain.JobKindAnswersGenerated:
		return "answers"
	case domain.JobKindQuestionEdited, domain.JobKindQuestionRegenerated:
		return "question"
	default:
		return "answer"
	}
}

// Start consumes from a self-hosted queue backend and feeds deliveries to
// ProcessMessage. Unused when the hosted broker delivers over HTTP.
func (p *Processor) Start(ctx context.Context, consumer queue.Consumer) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := consumer.Consume(ctx, p.ProcessMessage)
		if err == nil || ctx.Err() != nil {
			return
		}
		p.logf("worker consume loop error: %v", err)

		timer := time.NewTimer(2 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
