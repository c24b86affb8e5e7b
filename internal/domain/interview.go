package domain

import "time"

// Interview holds the user-submitted company/job/resume inputs a prompt is
// built from. The pipeline only reads interviews; they are managed by the
// surrounding application.
type Interview struct {
	ID          string
	UserID      string
	CompanyName string
	JobTitle    string
	JobPosting  string
	Resume      string
	Comment     string
	CreatedAt   time.Time
}

type NotificationType string

const (
	NotificationVersionCreated NotificationType = "version_created"
)

// Notification is a best-effort user-facing message; failing to create one
// never fails the owning job.
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Message   string
	VersionID string
	Read      bool
	CreatedAt time.Time
}
