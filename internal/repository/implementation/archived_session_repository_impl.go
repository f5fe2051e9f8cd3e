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

type ArchivedSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ArchiveMapper
}

func NewArchivedSessionRepository(db *gorm.DB) contract.ArchivedSessionRepository {
	return &ArchivedSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewArchiveMapper(),
	}
}

func (r *ArchivedSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ArchivedSessionRepositoryImpl) Create(ctx context.Context, session *entity.ArchivedSession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *ArchivedSessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ArchivedSession{}, id).Error
}

func (r *ArchivedSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ArchivedSession, error) {
	var m model.ArchivedSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ArchivedSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ArchivedSession, error) {
	var models []*model.ArchivedSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ArchivedSession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *ArchivedSessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ArchivedSession{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
