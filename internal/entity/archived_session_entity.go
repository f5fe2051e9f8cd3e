package entity

import (
	"time"

	"github.com/google/uuid"

	"medintake-be/pkg/intake"
)

// ArchivedSession is the durable record written once an interview completes.
// Live sessions stay in the session store; this is the copy the clinic keeps.
type ArchivedSession struct {
	Id               uuid.UUID
	QuestionnaireId  uuid.UUID
	Transcript       []intake.Turn
	FormattedAnswers []intake.FormattedAnswer
	Summary          string
	StartedAt        time.Time
	CompletedAt      time.Time
	CreatedAt        time.Time
	DeletedAt        *time.Time
	IsDeleted        bool
}
