package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ArchivedSession struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey"`
	QuestionnaireId  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Transcript       datatypes.JSON `gorm:"type:jsonb;not null"`
	FormattedAnswers datatypes.JSON `gorm:"type:jsonb;not null"`
	Summary          string         `gorm:"type:text"`
	StartedAt        time.Time      `gorm:"not null"`
	CompletedAt      time.Time      `gorm:"not null;index"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (ArchivedSession) TableName() string {
	return "archived_sessions"
}
