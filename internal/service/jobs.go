package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jungeol66104/firework-web-sub001/internal/domain"
	"github.com/jungeol66104/firework-web-sub001/internal/queue"
	"github.com/jungeol66104/firework-web-sub001/internal/repository"
)

var (
	ErrUnknownJobKind     = errors.New("unknown job kind")
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrJobTerminal        = errors.New("job already finished")
)

// JobsService creates job records and hands them to the dispatcher. The
// balance check here is a fast user-facing rejection; the processor repeats
// it authoritatively before charging.
type JobsService struct {
	repo       repository.JobsRepository
	tokens     *TokenService
	dispatcher queue.Dispatcher
}

func NewJobsService(repo repository.JobsRepository, tokens *TokenService, dispatcher queue.Dispatcher) *JobsService {
	return &JobsService{repo: repo, tokens: tokens, dispatcher: dispatcher}
}

// Request validates the kind, pre-checks the balance, persists the job and
// publishes it. A job is never left queued without a dispatch: publish
// failure marks it failed immediately.
func (s *JobsService) Request(
	ctx context.Context,
	userID string,
	interviewID string,
	kind domain.JobKind,
	input json.RawMessage,
) (*domain.Job, error) {
	if !domain.ValidJobKind(kind) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobKind, kind)
	}

	cost, err := CostFor(kind, input)
	if err != nil {
		return nil, err
	}
	balance, err := s.tokens.Balance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check balance: %w", err)
	}
	if balance < cost {
		return nil, ErrInsufficientTokens
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:          uuid.NewString(),
		UserID:      userID,
		InterviewID: interviewID,
		Kind:        kind,
		Status:      domain.JobStatusQueued,
		Input:       input,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	message := domain.QueueMessage{
		JobID:       job.ID,
		Kind:        kind,
		UserID:      userID,
		InterviewID: interviewID,
		Input:       input,
		Attempt:     0,
		RequestedAt: now,
	}
	if err := s.dispatcher.Enqueue(ctx, message); err != nil {
		_ = s.repo.FailJob(ctx, job.ID, "Failed to queue job")
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	return job, nil
}

func (s *JobsService) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.repo.GetJob(ctx, jobID)
}

// Cancel forces a queued/processing job to failed. Terminal jobs are
// rejected. Cancellation is advisory: an in-flight provider call is not
// interrupted, but its late result will be refused by the terminal-state
// guard and its charge refunded.
func (s *JobsService) Cancel(ctx context.Context, jobID string) error {
	err := s.repo.CancelJob(ctx, jobID)
	if errors.Is(err, repository.ErrTerminal) {
		return ErrJobTerminal
	}
	return err
}
