package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
)

// InterviewsRepository reads the interview inputs a prompt is built from.
// Interviews are written by the surrounding application; the pipeline only
// needs lookups.
type InterviewsRepository interface {
	GetInterview(ctx context.Context, interviewID string) (*domain.Interview, error)
}

// NotificationsRepository creates best-effort user notifications.
type NotificationsRepository interface {
	CreateNotification(ctx context.Context, notification *domain.Notification) error
}

type MemoryInterviewsRepository struct {
	mu         sync.RWMutex
	interviews map[string]*domain.Interview
}

func NewMemoryInterviewsRepository() *MemoryInterviewsRepository {
	return &MemoryInterviewsRepository{interviews: make(map[string]*domain.Interview)}
}

func (r *MemoryInterviewsRepository) GetInterview(_ context.Context, interviewID string) (*domain.Interview, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	interview, ok := r.interviews[interviewID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *interview
	return &clone, nil
}

// PutInterview seeds an interview. Test and bootstrap helper.
func (r *MemoryInterviewsRepository) PutInterview(interview *domain.Interview) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *interview
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now().UTC()
	}
	r.interviews[clone.ID] = &clone
}

type MemoryNotificationsRepository struct {
	mu            sync.Mutex
	notifications []*domain.Notification
}

func NewMemoryNotificationsRepository() *MemoryNotificationsRepository {
	return &MemoryNotificationsRepository{notifications: make([]*domain.Notification, 0)}
}

func (r *MemoryNotificationsRepository) CreateNotification(_ context.Context, notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *notification
	r.notifications = append(r.notifications, &clone)
	return nil
}

func (r *MemoryNotificationsRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notifications)
}
