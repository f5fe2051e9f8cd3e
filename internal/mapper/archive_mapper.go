package mapper

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"medintake-be/internal/entity"
	"medintake-be/internal/model"
	"medintake-be/pkg/intake"
)

type ArchiveMapper struct{}

func NewArchiveMapper() *ArchiveMapper {
	return &ArchiveMapper{}
}

func (m *ArchiveMapper) ToEntity(s *model.ArchivedSession) *entity.ArchivedSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var transcript []intake.Turn
	_ = json.Unmarshal(s.Transcript, &transcript)

	var answers []intake.FormattedAnswer
	_ = json.Unmarshal(s.FormattedAnswers, &answers)

	return &entity.ArchivedSession{
		Id:               s.Id,
		QuestionnaireId:  s.QuestionnaireId,
		Transcript:       transcript,
		FormattedAnswers: answers,
		Summary:          s.Summary,
		StartedAt:        s.StartedAt,
		CompletedAt:      s.CompletedAt,
		CreatedAt:        s.CreatedAt,
		DeletedAt:        deletedAt,
		IsDeleted:        s.DeletedAt.Valid,
	}
}

func (m *ArchiveMapper) ToModel(s *entity.ArchivedSession) *model.ArchivedSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	transcript, _ := json.Marshal(s.Transcript)
	answers, _ := json.Marshal(s.FormattedAnswers)

	return &model.ArchivedSession{
		Id:               s.Id,
		QuestionnaireId:  s.QuestionnaireId,
		Transcript:       transcript,
		FormattedAnswers: answers,
		Summary:          s.Summary,
		StartedAt:        s.StartedAt,
		CompletedAt:      s.CompletedAt,
		CreatedAt:        s.CreatedAt,
		DeletedAt:        deletedAt,
	}
}
