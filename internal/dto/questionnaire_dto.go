package dto

import "time"

type QuestionPayload struct {
	Id       string   `json:"id" validate:"required"`
	Text     string   `json:"text" validate:"required"`
	Required bool     `json:"required"`
	Type     string   `json:"type" validate:"omitempty,oneof=free_text single_choice multi_choice scale"`
	Options  []string `json:"options,omitempty"`
}

type CreateQuestionnaireRequest struct {
	Name        string            `json:"name" validate:"required,max=255"`
	Description string            `json:"description"`
	Questions   []QuestionPayload `json:"questions" validate:"required,min=1,dive"`
}

type UpdateQuestionnaireRequest struct {
	Name        string            `json:"name" validate:"required,max=255"`
	Description string            `json:"description"`
	Questions   []QuestionPayload `json:"questions" validate:"required,min=1,dive"`
}

type QuestionnaireResponse struct {
	Id          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Questions   []QuestionPayload `json:"questions"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
}
