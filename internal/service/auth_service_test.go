package service

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medintake-be/internal/config"
	"medintake-be/internal/dto"
	"medintake-be/internal/entity"
	"medintake-be/internal/repository/contract"
	"medintake-be/internal/repository/specification"
	"medintake-be/internal/repository/unitofwork"
)

type memUserRepo struct {
	byEmail map[string]*entity.User
}

func (r *memUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.byEmail[user.Email] = user
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.byEmail[user.Email] = user
	return nil
}

func (r *memUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	for _, spec := range specs {
		if byEmail, ok := spec.(specification.ByEmail); ok {
			return r.byEmail[byEmail.Email], nil
		}
	}
	return nil, nil
}

type userUow struct {
	repo *memUserRepo
}

func (u *userUow) Begin(ctx context.Context) error { return nil }
func (u *userUow) Commit() error                   { return nil }
func (u *userUow) Rollback() error                 { return nil }

func (u *userUow) QuestionnaireRepository() contract.QuestionnaireRepository { return nil }
func (u *userUow) ArchivedSessionRepository() contract.ArchivedSessionRepository {
	return nil
}
func (u *userUow) UserRepository() contract.UserRepository { return u.repo }

type userUowFactory struct {
	uow *userUow
}

func (f *userUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

func newAuthService() (IAuthService, *memUserRepo) {
	repo := &memUserRepo{byEmail: map[string]*entity.User{}}
	cfg := config.AuthConfig{JwtSecret: "test-secret", TokenTTLHours: 1}
	return NewAuthService(&userUowFactory{uow: &userUow{repo: repo}}, cfg, nopLogger{}), repo
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc, repo := newAuthService()
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@clinic.test", "s3cret"))
	first := repo.byEmail["admin@clinic.test"]
	require.NotNil(t, first)

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@clinic.test", "different"))
	assert.Equal(t, first, repo.byEmail["admin@clinic.test"], "second call must not replace the account")
}

func TestLoginIssuesSignedToken(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@clinic.test", "s3cret"))

	res, err := svc.Login(ctx, &dto.LoginRequest{Email: "admin@clinic.test", Password: "s3cret"})
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)

	token, err := jwt.Parse(res.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "admin", claims["role"])
	assert.NotEmpty(t, claims["user_id"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@clinic.test", "s3cret"))

	var fe *fiber.Error

	_, err := svc.Login(ctx, &dto.LoginRequest{Email: "admin@clinic.test", Password: "wrong"})
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusUnauthorized, fe.Code)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "nobody@clinic.test", Password: "s3cret"})
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusUnauthorized, fe.Code)
}
