package store

import (
	"time"

	"medintake-be/pkg/intake"
)

// Session status values
const (
	StatusActive      = "ACTIVE"
	StatusSummarizing = "SUMMARIZING"
	StatusCompleted   = "COMPLETED"
)

// InterviewSession is the live record of one patient interview. It is what
// the session stores persist between turns; the engine state inside it is
// the authoritative dialogue position.
type InterviewSession struct {
	ID              string       `json:"id"`
	QuestionnaireID string       `json:"questionnaire_id"`
	Status          string       `json:"status"` // "ACTIVE" | "SUMMARIZING" | "COMPLETED"
	State           intake.State `json:"state"`

	// Filled once the interview completes and the summary is compiled.
	FormattedAnswers []intake.FormattedAnswer `json:"formatted_answers,omitempty"`
	Summary          string                   `json:"summary,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
