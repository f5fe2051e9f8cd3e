package unitofwork

import (
	"context"

	"medintake-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	QuestionnaireRepository() contract.QuestionnaireRepository
	ArchivedSessionRepository() contract.ArchivedSessionRepository
	UserRepository() contract.UserRepository
}
