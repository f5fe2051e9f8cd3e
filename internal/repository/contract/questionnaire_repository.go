package contract

import (
	"context"

	"github.com/google/uuid"

	"medintake-be/internal/entity"
	"medintake-be/internal/repository/specification"
)

type QuestionnaireRepository interface {
	Create(ctx context.Context, questionnaire *entity.Questionnaire) error
	Update(ctx context.Context, questionnaire *entity.Questionnaire) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Questionnaire, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Questionnaire, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
