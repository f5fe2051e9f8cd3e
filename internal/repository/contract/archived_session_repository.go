package contract

import (
	"context"

	"github.com/google/uuid"

	"medintake-be/internal/entity"
	"medintake-be/internal/repository/specification"
)

type ArchivedSessionRepository interface {
	Create(ctx context.Context, session *entity.ArchivedSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ArchivedSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ArchivedSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
