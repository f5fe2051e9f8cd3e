package mapper

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"medintake-be/internal/entity"
	"medintake-be/internal/model"
	"medintake-be/pkg/intake"
)

type QuestionnaireMapper struct{}

func NewQuestionnaireMapper() *QuestionnaireMapper {
	return &QuestionnaireMapper{}
}

func (m *QuestionnaireMapper) ToEntity(q *model.Questionnaire) *entity.Questionnaire {
	if q == nil {
		return nil
	}

	var deletedAt *time.Time
	if q.DeletedAt.Valid {
		t := q.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !q.UpdatedAt.IsZero() {
		t := q.UpdatedAt
		updatedAt = &t
	}

	var questions []intake.Question
	// A malformed bank is unusable; surface it as an empty bank and let the
	// service layer reject session creation.
	_ = json.Unmarshal(q.Questions, &questions)

	return &entity.Questionnaire{
		Id:          q.Id,
		Name:        q.Name,
		Description: q.Description,
		Questions:   questions,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   updatedAt,
		DeletedAt:   deletedAt,
		IsDeleted:   q.DeletedAt.Valid,
	}
}

func (m *QuestionnaireMapper) ToModel(q *entity.Questionnaire) *model.Questionnaire {
	if q == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if q.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *q.DeletedAt, Valid: true}
	} else if q.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if q.UpdatedAt != nil {
		updatedAt = *q.UpdatedAt
	}

	questions, _ := json.Marshal(q.Questions)

	return &model.Questionnaire{
		Id:          q.Id,
		Name:        q.Name,
		Description: q.Description,
		Questions:   questions,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   updatedAt,
		DeletedAt:   deletedAt,
	}
}
