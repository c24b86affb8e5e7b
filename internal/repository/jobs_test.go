package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
)

func seedJob(t *testing.T, repo *MemoryJobsRepository, id string) {
	t.Helper()
	now := time.Now().UTC()
	err := repo.CreateJob(context.Background(), &domain.Job{
		ID:          id,
		UserID:      "user-1",
		InterviewID: "interview-1",
		Kind:        domain.JobKindQuestionsGenerated,
		Status:      domain.JobStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
}

func TestClaimJobOnlyOnce(t *testing.T) {
	repo := NewMemoryJobsRepository()
	seedJob(t, repo, "job-1")

	claimed, err := repo.ClaimJob(context.Background(), "job-1", 0)
	if err != nil || !claimed {
		t.Fatalf("first claim must succeed, got claimed=%v err=%v", claimed, err)
	}
	claimed, err = repo.ClaimJob(context.Background(), "job-1", 1)
	if err != nil {
		t.Fatalf("second claim errored: %v", err)
	}
	if claimed {
		t.Fatalf("second claim must not succeed")
	}

	job, _ := repo.GetJob(context.Background(), "job-1")
	if job.Status != domain.JobStatusProcessing {
		t.Fatalf("expected processing, got %s", job.Status)
	}
	if job.Attempts != 1 {
		t.Fatalf("expected attempts 1, got %d", job.Attempts)
	}
}

func TestClaimJobUnknownID(t *testing.T) {
	repo := NewMemoryJobsRepository()
	if _, err := repo.ClaimJob(context.Background(), "missing", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTerminalJobRejectsFurtherTransitions(t *testing.T) {
	repo := NewMemoryJobsRepository()
	seedJob(t, repo, "job-1")

	if err := repo.CompleteJob(context.Background(), "job-1", []byte(`{"version_id":"v1"}`)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := repo.FailJob(context.Background(), "job-1", "late failure"); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal from fail, got %v", err)
	}
	if err := repo.CancelJob(context.Background(), "job-1"); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal from cancel, got %v", err)
	}

	job, _ := repo.GetJob(context.Background(), "job-1")
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("terminal status must not change, got %s", job.Status)
	}
	if job.CompletedAt == nil {
		t.Fatalf("expected completion timestamp")
	}
}

func TestCancelQueuedJobSetsFixedMessage(t *testing.T) {
	repo := NewMemoryJobsRepository()
	seedJob(t, repo, "job-1")

	if err := repo.CancelJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	job, _ := repo.GetJob(context.Background(), "job-1")
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.ErrorMessage != domain.CancelledMessage {
		t.Fatalf("expected %q, got %q", domain.CancelledMessage, job.ErrorMessage)
	}
}

func TestDeleteTerminalBeforeKeepsActiveJobs(t *testing.T) {
	repo := NewMemoryJobsRepository()
	seedJob(t, repo, "old-done")
	seedJob(t, repo, "active")

	if err := repo.CompleteJob(context.Background(), "old-done", nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	removed, err := repo.DeleteTerminalBefore(context.Background(), time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one removal, got %d", removed)
	}
	if _, err := repo.GetJob(context.Background(), "old-done"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected old-done removed")
	}
	if _, err := repo.GetJob(context.Background(), "active"); err != nil {
		t.Fatalf("active job must survive: %v", err)
	}
}
