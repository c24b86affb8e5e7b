package domain

import (
	"encoding/json"
	"time"
)

type JobKind string

const (
	JobKindQuestionsGenerated  JobKind = "questions_generated"
	JobKindAnswersGenerated    JobKind = "answers_generated"
	JobKindQuestionEdited      JobKind = "question_edited"
	JobKindQuestionRegenerated JobKind = "question_regenerated"
	JobKindAnswerEdited        JobKind = "answer_edited"
	JobKindAnswerRegenerated   JobKind = "answer_regenerated"
)

// JobKinds lists every kind accepted by the job creation endpoint.
var JobKinds = []JobKind{
	JobKindQuestionsGenerated,
	JobKindAnswersGenerated,
	JobKindQuestionEdited,
	JobKindQuestionRegenerated,
	JobKindAnswerEdited,
	JobKindAnswerRegenerated,
}

func ValidJobKind(kind JobKind) bool {
	for _, candidate := range JobKinds {
		if candidate == kind {
			return true
		}
	}
	return false
}

// IsSingleSlot reports whether the kind targets one (category, index) slot
// instead of a whole bundle.
func (k JobKind) IsSingleSlot() bool {
	switch k {
	case JobKindQuestionEdited, JobKindQuestionRegenerated, JobKindAnswerEdited, JobKindAnswerRegenerated:
		return true
	default:
		return false
	}
}

// TargetsQuestion reports whether the kind produces question text rather
// than answer text. Regenerating or editing a question invalidates its
// paired answer.
func (k JobKind) TargetsQuestion() bool {
	switch k {
	case JobKindQuestionsGenerated, JobKindQuestionEdited, JobKindQuestionRegenerated:
		return true
	default:
		return false
	}
}

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CancelledMessage is the fixed error message set on user-cancelled jobs.
const CancelledMessage = "cancelled by user"

// Job is the canonical async unit processed by the webhook pipeline.
// Input is immutable once created; only the processor and the cancel
// action move a job to a terminal state.
type Job struct {
	ID           string
	UserID       string
	InterviewID  string
	Kind         JobKind
	Status       JobStatus
	Input        json.RawMessage
	Result       json.RawMessage
	ErrorMessage string
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// QueueMessage is the transport format delivered by the broker to the
// processing webhook.
type QueueMessage struct {
	JobID       string          `json:"job_id"`
	Kind        JobKind         `json:"kind"`
	UserID      string          `json:"user_id"`
	InterviewID string          `json:"interview_id"`
	Input       json.RawMessage `json:"input_data"`
	Attempt     int             `json:"attempt"`
	RequestedAt time.Time       `json:"requested_at"`
}

// EditInput is the kind-specific payload for single-slot jobs.
type EditInput struct {
	Category string `json:"category"`
	Index    int    `json:"index"`
	Comment  string `json:"comment,omitempty"`
}

// BulkInput is the kind-specific payload for bundle jobs. For answer
// generation, SelectedSlots lists the (category, index) slots to answer;
// empty means every slot.
type BulkInput struct {
	Comment       string       `json:"comment,omitempty"`
	SelectedSlots []TargetItem `json:"selected_slots,omitempty"`
}
