package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medintake-be/internal/dto"
	"medintake-be/internal/entity"
	"medintake-be/internal/repository/contract"
	"medintake-be/internal/repository/specification"
	"medintake-be/internal/repository/unitofwork"
)

// crudQuestionnaireRepo is an in-memory stand-in for the gorm repository.
type crudQuestionnaireRepo struct {
	byID map[uuid.UUID]*entity.Questionnaire
}

func newCrudQuestionnaireRepo() *crudQuestionnaireRepo {
	return &crudQuestionnaireRepo{byID: map[uuid.UUID]*entity.Questionnaire{}}
}

func (r *crudQuestionnaireRepo) Create(ctx context.Context, q *entity.Questionnaire) error {
	r.byID[q.Id] = q
	return nil
}

func (r *crudQuestionnaireRepo) Update(ctx context.Context, q *entity.Questionnaire) error {
	if _, ok := r.byID[q.Id]; !ok {
		return errors.New("not found")
	}
	r.byID[q.Id] = q
	return nil
}

func (r *crudQuestionnaireRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func (r *crudQuestionnaireRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Questionnaire, error) {
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			return r.byID[byID.ID], nil
		}
	}
	return nil, nil
}

func (r *crudQuestionnaireRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Questionnaire, error) {
	out := make([]*entity.Questionnaire, 0, len(r.byID))
	for _, q := range r.byID {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *crudQuestionnaireRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.byID)), nil
}

type crudUow struct {
	repo *crudQuestionnaireRepo
}

func (u *crudUow) Begin(ctx context.Context) error { return nil }
func (u *crudUow) Commit() error                   { return nil }
func (u *crudUow) Rollback() error                 { return nil }

func (u *crudUow) QuestionnaireRepository() contract.QuestionnaireRepository { return u.repo }
func (u *crudUow) ArchivedSessionRepository() contract.ArchivedSessionRepository {
	return nil
}
func (u *crudUow) UserRepository() contract.UserRepository { return nil }

type crudUowFactory struct {
	uow *crudUow
}

func (f *crudUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

func newQuestionnaireService() (IQuestionnaireService, *crudQuestionnaireRepo) {
	repo := newCrudQuestionnaireRepo()
	svc := NewQuestionnaireService(&crudUowFactory{uow: &crudUow{repo: repo}}, nopLogger{})
	return svc, repo
}

func TestCreateQuestionnaire(t *testing.T) {
	svc, repo := newQuestionnaireService()

	res, err := svc.Create(context.Background(), &dto.CreateQuestionnaireRequest{
		Name:        "General Intake",
		Description: "Standard pre-visit interview",
		Questions: []dto.QuestionPayload{
			{Id: "chief_complaint", Text: "What brings you in today?", Required: true, Type: "free_text"},
			{Id: "pain_scale", Text: "How severe is the pain, 1 to 10?", Required: true, Type: "scale"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "General Intake", res.Name)
	assert.Len(t, res.Questions, 2)
	assert.Len(t, repo.byID, 1)
}

func TestCreateQuestionnaireRejectsDuplicateIds(t *testing.T) {
	svc, _ := newQuestionnaireService()

	_, err := svc.Create(context.Background(), &dto.CreateQuestionnaireRequest{
		Name: "Broken",
		Questions: []dto.QuestionPayload{
			{Id: "q1", Text: "First?"},
			{Id: "q1", Text: "Second?"},
		},
	})
	require.Error(t, err)
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
}

func TestCreateQuestionnaireDefaultsType(t *testing.T) {
	svc, _ := newQuestionnaireService()

	res, err := svc.Create(context.Background(), &dto.CreateQuestionnaireRequest{
		Name: "Minimal",
		Questions: []dto.QuestionPayload{
			{Id: "q1", Text: "Anything else?"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "free_text", res.Questions[0].Type)
}

func TestUpdateQuestionnaireReplacesBank(t *testing.T) {
	svc, _ := newQuestionnaireService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &dto.CreateQuestionnaireRequest{
		Name:      "Original",
		Questions: []dto.QuestionPayload{{Id: "q1", Text: "Old?"}},
	})
	require.NoError(t, err)

	id := uuid.MustParse(created.Id)
	updated, err := svc.Update(ctx, id, &dto.UpdateQuestionnaireRequest{
		Name: "Revised",
		Questions: []dto.QuestionPayload{
			{Id: "q1", Text: "New?"},
			{Id: "q2", Text: "Added?"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Revised", updated.Name)
	assert.Len(t, updated.Questions, 2)

	shown, err := svc.Show(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "New?", shown.Questions[0].Text)
}

func TestShowAndDeleteUnknownQuestionnaire(t *testing.T) {
	svc, _ := newQuestionnaireService()
	ctx := context.Background()

	_, err := svc.Show(ctx, uuid.New())
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusNotFound, fe.Code)

	err = svc.Delete(ctx, uuid.New())
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusNotFound, fe.Code)
}
