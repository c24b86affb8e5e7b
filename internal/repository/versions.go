package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
)

// VersionsRepository stores immutable QA version snapshots. CreateVersion
// and SetDefault both perform the default swap atomically: at most one
// version per interview carries is_default at any time.
type VersionsRepository interface {
	CreateVersion(ctx context.Context, version *domain.QAVersion) error
	GetVersion(ctx context.Context, versionID string) (*domain.QAVersion, error)
	GetDefault(ctx context.Context, interviewID string) (*domain.QAVersion, error)
	ListVersions(ctx context.Context, interviewID string) ([]*domain.QAVersion, error)
	SetDefault(ctx context.Context, versionID string) error
}

// MemoryVersionsRepository keeps versions in memory for local development
// and tests.
type MemoryVersionsRepository struct {
	mu       sync.RWMutex
	versions map[string]*domain.QAVersion
}

func NewMemoryVersionsRepository() *MemoryVersionsRepository {
	return &MemoryVersionsRepository{versions: make(map[string]*domain.QAVersion)}
}

func (r *MemoryVersionsRepository) CreateVersion(_ context.Context, version *domain.QAVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if version.IsDefault {
		for _, existing := range r.versions {
			if existing.InterviewID == version.InterviewID {
				existing.IsDefault = false
			}
		}
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}
	r.versions[version.ID] = cloneVersion(version)
	return nil
}

func (r *MemoryVersionsRepository) GetVersion(_ context.Context, versionID string) (*domain.QAVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version, ok := r.versions[versionID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneVersion(version), nil
}

func (r *MemoryVersionsRepository) GetDefault(_ context.Context, interviewID string) (*domain.QAVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, version := range r.versions {
		if version.InterviewID == interviewID && version.IsDefault {
			return cloneVersion(version), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryVersionsRepository) ListVersions(_ context.Context, interviewID string) ([]*domain.QAVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*domain.QAVersion, 0)
	for _, version := range r.versions {
		if version.InterviewID == interviewID {
			items = append(items, cloneVersion(version))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (r *MemoryVersionsRepository) SetDefault(_ context.Context, versionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.versions[versionID]
	if !ok {
		return ErrNotFound
	}
	for _, version := range r.versions {
		if version.InterviewID == target.InterviewID {
			version.IsDefault = false
		}
	}
	target.IsDefault = true
	return nil
}

func cloneVersion(version *domain.QAVersion) *domain.QAVersion {
	if version == nil {
		return nil
	}
	clone := *version
	clone.Questions = version.Questions.Clone()
	clone.Answers = version.Answers.Clone()
	clone.TargetItems = append([]domain.TargetItem(nil), version.TargetItems...)
	if version.ParentID != nil {
		parentID := *version.ParentID
		clone.ParentID = &parentID
	}
	return &clone
}
