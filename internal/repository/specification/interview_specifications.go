package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByQuestionnaireId filters archived sessions by their questionnaire.
type ByQuestionnaireId struct {
	QuestionnaireId uuid.UUID
}

func (s ByQuestionnaireId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("questionnaire_id = ?", s.QuestionnaireId)
}

// ByEmail filters users by email.
type ByEmail struct {
	Email string
}

func (s ByEmail) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("email = ?", s.Email)
}

// CompletedAfter filters archived sessions by completion time.
type CompletedAfter struct {
	After string // RFC3339
}

func (s CompletedAfter) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("completed_at > ?", s.After)
}
