package domain

import (
	"fmt"
	"time"
)

// The three fixed interview categories. Every bundle carries exactly these,
// each with SlotsPerCategory entries.
const (
	CategoryGeneralPersonality = "general_personality"
	CategoryJobCompetency      = "job_competency"
	CategoryCompanyMotivation  = "company_motivation"
)

var Categories = []string{
	CategoryGeneralPersonality,
	CategoryJobCompetency,
	CategoryCompanyMotivation,
}

const SlotsPerCategory = 10

func ValidCategory(category string) bool {
	for _, candidate := range Categories {
		if candidate == category {
			return true
		}
	}
	return false
}

// QuestionBundle maps category name to an ordered list of question strings.
type QuestionBundle map[string][]string

// AnswerBundle maps category name to an ordered list of answers; a nil
// entry is the placeholder for a question with no answer yet.
type AnswerBundle map[string][]*string

// EmptyQuestionBundle returns a bundle with every slot blank.
func EmptyQuestionBundle() QuestionBundle {
	bundle := make(QuestionBundle, len(Categories))
	for _, category := range Categories {
		bundle[category] = make([]string, SlotsPerCategory)
	}
	return bundle
}

// EmptyAnswerBundle returns a bundle with every slot null.
func EmptyAnswerBundle() AnswerBundle {
	bundle := make(AnswerBundle, len(Categories))
	for _, category := range Categories {
		bundle[category] = make([]*string, SlotsPerCategory)
	}
	return bundle
}

// Clone deep-copies the bundle so stored versions stay immutable.
func (b QuestionBundle) Clone() QuestionBundle {
	clone := make(QuestionBundle, len(b))
	for category, items := range b {
		clone[category] = append([]string(nil), items...)
	}
	return clone
}

func (b AnswerBundle) Clone() AnswerBundle {
	clone := make(AnswerBundle, len(b))
	for category, items := range b {
		copied := make([]*string, len(items))
		for index, item := range items {
			if item != nil {
				value := *item
				copied[index] = &value
			}
		}
		clone[category] = copied
	}
	return clone
}

type VersionKind string

const (
	VersionKindQuestionsGenerated  VersionKind = "questions_generated"
	VersionKindAnswersGenerated    VersionKind = "answers_generated"
	VersionKindQuestionEdited      VersionKind = "question_edited"
	VersionKindQuestionRegenerated VersionKind = "question_regenerated"
	VersionKindAnswerEdited        VersionKind = "answer_edited"
	VersionKindAnswerRegenerated   VersionKind = "answer_regenerated"
	VersionKindAdminEdited         VersionKind = "admin_edited"
)

// TargetItem identifies one (category, index) question/answer slot that a
// version changed relative to its parent.
type TargetItem struct {
	Category string `json:"category"`
	Index    int    `json:"index"`
}

func (t TargetItem) Validate() error {
	if !ValidCategory(t.Category) {
		return fmt.Errorf("unknown category %q", t.Category)
	}
	if t.Index < 0 || t.Index >= SlotsPerCategory {
		return fmt.Errorf("index %d out of range [0,%d)", t.Index, SlotsPerCategory)
	}
	return nil
}

// QAVersion is an immutable snapshot of one interview's question and
// answer bundles. Edits produce new versions, never in-place updates.
// ParentID is nil only for an interview's first version.
type QAVersion struct {
	ID          string
	InterviewID string
	Name        string
	Kind        VersionKind
	Questions   QuestionBundle
	Answers     AnswerBundle
	IsDefault   bool
	ParentID    *string
	TargetItems []TargetItem
	TokensUsed  float64
	CreatedAt   time.Time
}
