package dto

import (
	"time"

	"medintake-be/pkg/intake"
)

type CreateSessionRequest struct {
	QuestionnaireId string `json:"questionnaire_id" validate:"required,uuid4"`
}

type CreateSessionResponse struct {
	SessionId     string `json:"session_id"`
	Greeting      string `json:"greeting"`
	FirstQuestion string `json:"first_question"`
	Emotion       string `json:"emotion"`
	TotalCount    int    `json:"total_count"`
}

type SubmitAnswerRequest struct {
	Utterance string `json:"utterance" validate:"required"`
}

type Progress struct {
	AnsweredCount int `json:"answered_count"`
	TotalCount    int `json:"total_count"`
}

type SubmitAnswerResponse struct {
	Reply        string   `json:"reply"`
	Emotion      string   `json:"emotion"`
	Sufficient   bool     `json:"sufficient"`
	CoveredIds   []string `json:"covered_ids,omitempty"`
	NextQuestion string   `json:"next_question,omitempty"`
	Completed    bool     `json:"completed"`
	Closing      string   `json:"closing,omitempty"`
	Progress     Progress `json:"progress"`
}

type FormattedAnswerResponse struct {
	QuestionId      string `json:"question_id"`
	QuestionText    string `json:"question_text"`
	ExtractedAnswer string `json:"extracted_answer"`
	Confidence      string `json:"confidence"`
}

type SummaryResponse struct {
	SessionId        string                    `json:"session_id"`
	Status           string                    `json:"status"`
	FormattedAnswers []FormattedAnswerResponse `json:"formatted_answers"`
	Summary          string                    `json:"summary"`
}

type SessionDetailResponse struct {
	SessionId       string        `json:"session_id"`
	QuestionnaireId string        `json:"questionnaire_id"`
	Status          string        `json:"status"`
	Completed       bool          `json:"completed"`
	CurrentQuestion string        `json:"current_question,omitempty"`
	Transcript      []intake.Turn `json:"transcript"`
	Progress        Progress      `json:"progress"`
}

// SessionListItem is one row of the clinic dashboard's live session list.
type SessionListItem struct {
	SessionId       string    `json:"session_id"`
	QuestionnaireId string    `json:"questionnaire_id"`
	Status          string    `json:"status"`
	Completed       bool      `json:"completed"`
	AnsweredCount   int       `json:"answered_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ArchiveSessionMessage is the payload published when an interview completes
// and consumed by the archive worker.
type ArchiveSessionMessage struct {
	SessionId string `json:"session_id"`
}
