package entity

import (
	"time"

	"github.com/google/uuid"

	"medintake-be/pkg/intake"
)

type Questionnaire struct {
	Id          uuid.UUID
	Name        string
	Description string
	Questions   []intake.Question
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	DeletedAt   *time.Time
	IsDeleted   bool
}
