package implementation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"medintake-be/internal/entity"
	"medintake-be/internal/mapper"
	"medintake-be/internal/model"
	"medintake-be/internal/repository/contract"
	"medintake-be/internal/repository/specification"
)

type QuestionnaireRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.QuestionnaireMapper
}

func NewQuestionnaireRepository(db *gorm.DB) contract.QuestionnaireRepository {
	return &QuestionnaireRepositoryImpl{
		db:     db,
		mapper: mapper.NewQuestionnaireMapper(),
	}
}

func (r *QuestionnaireRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *QuestionnaireRepositoryImpl) Create(ctx context.Context, questionnaire *entity.Questionnaire) error {
	m := r.mapper.ToModel(questionnaire)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*questionnaire = *r.mapper.ToEntity(m)
	return nil
}

func (r *QuestionnaireRepositoryImpl) Update(ctx context.Context, questionnaire *entity.Questionnaire) error {
	m := r.mapper.ToModel(questionnaire)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*questionnaire = *r.mapper.ToEntity(m)
	return nil
}

func (r *QuestionnaireRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Questionnaire{}, id).Error
}

func (r *QuestionnaireRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Questionnaire, error) {
	var m model.Questionnaire
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *QuestionnaireRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Questionnaire, error) {
	var models []*model.Questionnaire
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Questionnaire, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *QuestionnaireRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Questionnaire{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
