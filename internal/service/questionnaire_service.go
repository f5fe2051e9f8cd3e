package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"medintake-be/internal/constant"
	"medintake-be/internal/dto"
	"medintake-be/internal/entity"
	"medintake-be/internal/pkg/logger"
	"medintake-be/internal/repository/specification"
	"medintake-be/internal/repository/unitofwork"
	"medintake-be/pkg/intake"
)

type IQuestionnaireService interface {
	Create(ctx context.Context, req *dto.CreateQuestionnaireRequest) (*dto.QuestionnaireResponse, error)
	GetAll(ctx context.Context) ([]*dto.QuestionnaireResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.QuestionnaireResponse, error)
	Update(ctx context.Context, id uuid.UUID, req *dto.UpdateQuestionnaireRequest) (*dto.QuestionnaireResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type questionnaireService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewQuestionnaireService(uowFactory unitofwork.RepositoryFactory, sysLogger logger.ILogger) IQuestionnaireService {
	return &questionnaireService{
		uowFactory: uowFactory,
		logger:     sysLogger,
	}
}

func (s *questionnaireService) Create(ctx context.Context, req *dto.CreateQuestionnaireRequest) (*dto.QuestionnaireResponse, error) {
	questions, err := toQuestionBank(req.Questions)
	if err != nil {
		return nil, err
	}

	q := &entity.Questionnaire{
		Id:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Questions:   questions,
		CreatedAt:   time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.QuestionnaireRepository().Create(ctx, q); err != nil {
		return nil, err
	}

	s.logger.Info(constant.ModuleQuestionnaire, "Questionnaire created", map[string]interface{}{
		"id": q.Id, "questions": len(q.Questions),
	})
	return toQuestionnaireResponse(q), nil
}

func (s *questionnaireService) GetAll(ctx context.Context) ([]*dto.QuestionnaireResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	list, err := uow.QuestionnaireRepository().FindAll(ctx, specification.OrderBy{Field: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}

	out := make([]*dto.QuestionnaireResponse, len(list))
	for i, q := range list {
		out[i] = toQuestionnaireResponse(q)
	}
	return out, nil
}

func (s *questionnaireService) Show(ctx context.Context, id uuid.UUID) (*dto.QuestionnaireResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	q, err := uow.QuestionnaireRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "questionnaire not found")
	}
	return toQuestionnaireResponse(q), nil
}

func (s *questionnaireService) Update(ctx context.Context, id uuid.UUID, req *dto.UpdateQuestionnaireRequest) (*dto.QuestionnaireResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	q, err := uow.QuestionnaireRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "questionnaire not found")
	}

	questions, err := toQuestionBank(req.Questions)
	if err != nil {
		return nil, err
	}

	q.Name = req.Name
	q.Description = req.Description
	q.Questions = questions

	if err := uow.QuestionnaireRepository().Update(ctx, q); err != nil {
		return nil, err
	}

	s.logger.Info(constant.ModuleQuestionnaire, "Questionnaire updated", map[string]interface{}{"id": q.Id})
	return toQuestionnaireResponse(q), nil
}

func (s *questionnaireService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	q, err := uow.QuestionnaireRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if q == nil {
		return fiber.NewError(fiber.StatusNotFound, "questionnaire not found")
	}

	if err := uow.QuestionnaireRepository().Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(constant.ModuleQuestionnaire, "Questionnaire deleted", map[string]interface{}{"id": id})
	return nil
}

// toQuestionBank validates and converts the request payload into the domain
// bank. Duplicate ids would break answer attribution, so they are rejected.
func toQuestionBank(payload []dto.QuestionPayload) ([]intake.Question, error) {
	seen := make(map[string]bool, len(payload))
	questions := make([]intake.Question, 0, len(payload))
	for _, p := range payload {
		if seen[p.Id] {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("duplicate question id %q", p.Id))
		}
		seen[p.Id] = true

		qType := intake.QuestionType(p.Type)
		if p.Type == "" {
			qType = intake.QuestionFreeText
		}
		questions = append(questions, intake.Question{
			Id:       p.Id,
			Text:     p.Text,
			Required: p.Required,
			Type:     qType,
			Options:  p.Options,
		})
	}
	return questions, nil
}

func toQuestionnaireResponse(q *entity.Questionnaire) *dto.QuestionnaireResponse {
	questions := make([]dto.QuestionPayload, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = dto.QuestionPayload{
			Id:       question.Id,
			Text:     question.Text,
			Required: question.Required,
			Type:     string(question.Type),
			Options:  question.Options,
		}
	}
	return &dto.QuestionnaireResponse{
		Id:          q.Id.String(),
		Name:        q.Name,
		Description: q.Description,
		Questions:   questions,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}
