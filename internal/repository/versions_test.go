package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
)

func newVersion(id, interviewID string, isDefault bool, parentID *string, createdAt time.Time) *domain.QAVersion {
	return &domain.QAVersion{
		ID:          id,
		InterviewID: interviewID,
		Name:        "v " + id,
		Kind:        domain.VersionKindQuestionsGenerated,
		Questions:   domain.EmptyQuestionBundle(),
		Answers:     domain.EmptyAnswerBundle(),
		IsDefault:   isDefault,
		ParentID:    parentID,
		CreatedAt:   createdAt,
	}
}

func TestCreateVersionSwapsDefault(t *testing.T) {
	repo := NewMemoryVersionsRepository()
	base := time.Now().UTC()

	if err := repo.CreateVersion(context.Background(), newVersion("v1", "interview-1", true, nil, base)); err != nil {
		t.Fatalf("create v1: %v", err)
	}
	parent := "v1"
	if err := repo.CreateVersion(context.Background(), newVersion("v2", "interview-1", true, &parent, base.Add(time.Second))); err != nil {
		t.Fatalf("create v2: %v", err)
	}

	current, err := repo.GetDefault(context.Background(), "interview-1")
	if err != nil {
		t.Fatalf("get default: %v", err)
	}
	if current.ID != "v2" {
		t.Fatalf("expected v2 default, got %s", current.ID)
	}
	if current.ParentID == nil || *current.ParentID != "v1" {
		t.Fatalf("expected parent v1")
	}

	old, _ := repo.GetVersion(context.Background(), "v1")
	if old.IsDefault {
		t.Fatalf("previous default must be cleared")
	}
}

func TestDefaultSwapIsScopedPerInterview(t *testing.T) {
	repo := NewMemoryVersionsRepository()
	base := time.Now().UTC()

	if err := repo.CreateVersion(context.Background(), newVersion("a1", "interview-a", true, nil, base)); err != nil {
		t.Fatalf("create a1: %v", err)
	}
	if err := repo.CreateVersion(context.Background(), newVersion("b1", "interview-b", true, nil, base)); err != nil {
		t.Fatalf("create b1: %v", err)
	}

	if _, err := repo.GetDefault(context.Background(), "interview-a"); err != nil {
		t.Fatalf("interview-a default must survive writes to interview-b: %v", err)
	}
}

func TestSetDefaultPromotesOlderVersion(t *testing.T) {
	repo := NewMemoryVersionsRepository()
	base := time.Now().UTC()

	if err := repo.CreateVersion(context.Background(), newVersion("v1", "interview-1", true, nil, base)); err != nil {
		t.Fatalf("create v1: %v", err)
	}
	if err := repo.CreateVersion(context.Background(), newVersion("v2", "interview-1", true, nil, base.Add(time.Second))); err != nil {
		t.Fatalf("create v2: %v", err)
	}

	if err := repo.SetDefault(context.Background(), "v1"); err != nil {
		t.Fatalf("promote v1: %v", err)
	}

	current, err := repo.GetDefault(context.Background(), "interview-1")
	if err != nil {
		t.Fatalf("get default: %v", err)
	}
	if current.ID != "v1" {
		t.Fatalf("expected promoted v1, got %s", current.ID)
	}

	other, _ := repo.GetVersion(context.Background(), "v2")
	if other.IsDefault {
		t.Fatalf("only one default per interview")
	}
}

func TestSetDefaultUnknownVersion(t *testing.T) {
	repo := NewMemoryVersionsRepository()
	if err := repo.SetDefault(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListVersionsOrderedByCreation(t *testing.T) {
	repo := NewMemoryVersionsRepository()
	base := time.Now().UTC()

	if err := repo.CreateVersion(context.Background(), newVersion("v2", "interview-1", false, nil, base.Add(time.Second))); err != nil {
		t.Fatalf("create v2: %v", err)
	}
	if err := repo.CreateVersion(context.Background(), newVersion("v1", "interview-1", false, nil, base)); err != nil {
		t.Fatalf("create v1: %v", err)
	}

	items, err := repo.ListVersions(context.Background(), "interview-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].ID != "v1" || items[1].ID != "v2" {
		t.Fatalf("expected creation order v1,v2")
	}
}

func TestStoredVersionIsIsolatedFromCallerMutation(t *testing.T) {
	repo := NewMemoryVersionsRepository()
	version := newVersion("v1", "interview-1", true, nil, time.Now().UTC())
	version.Questions[domain.CategoryGeneralPersonality][0] = "original"

	if err := repo.CreateVersion(context.Background(), version); err != nil {
		t.Fatalf("create: %v", err)
	}
	version.Questions[domain.CategoryGeneralPersonality][0] = "mutated"

	stored, _ := repo.GetVersion(context.Background(), "v1")
	if stored.Questions[domain.CategoryGeneralPersonality][0] != "original" {
		t.Fatalf("stored version must not share memory with the caller")
	}
}
