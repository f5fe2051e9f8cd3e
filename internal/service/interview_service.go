package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"medintake-be/internal/constant"
	"medintake-be/internal/dto"
	"medintake-be/internal/pkg/logger"
	"medintake-be/internal/repository/contract"
	"medintake-be/internal/repository/specification"
	"medintake-be/internal/repository/unitofwork"
	"medintake-be/internal/websocket"
	"medintake-be/pkg/events"
	"medintake-be/pkg/intake"
	"medintake-be/pkg/intake/summary"
	pktnats "medintake-be/pkg/nats"
	"medintake-be/pkg/store"
)

type IInterviewService interface {
	CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	SubmitAnswer(ctx context.Context, sessionID string, req *dto.SubmitAnswerRequest) (*dto.SubmitAnswerResponse, error)
	GetSession(ctx context.Context, sessionID string) (*dto.SessionDetailResponse, error)
	ListSessions(ctx context.Context) ([]*dto.SessionListItem, error)
	GetSummary(ctx context.Context, sessionID string) (*dto.SummaryResponse, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type interviewService struct {
	uowFactory   unitofwork.RepositoryFactory
	sessionStore contract.SessionStore
	oracle       intake.AnswerOracle
	compiler     *summary.Compiler
	publisher    IPublisherService // archive topic
	natsPub      *pktnats.Publisher
	hub          *websocket.Hub
	logger       logger.ILogger
	engineLog    *log.Logger
	engineCfg    intake.Config

	// engines holds the live dialogue engine per session; a restart or a
	// different instance rebuilds it from the persisted session state.
	engines sync.Map // session id -> *intake.Engine

	// inFlight rejects a second utterance for a session while one is still
	// being processed. One interview, one speaker.
	inFlight sync.Map // session id -> struct{}
}

func NewInterviewService(
	uowFactory unitofwork.RepositoryFactory,
	sessionStore contract.SessionStore,
	oracle intake.AnswerOracle,
	compiler *summary.Compiler,
	publisher IPublisherService,
	natsPub *pktnats.Publisher,
	hub *websocket.Hub,
	sysLogger logger.ILogger,
	engineLog *log.Logger,
	engineCfg intake.Config,
) IInterviewService {
	return &interviewService{
		uowFactory:   uowFactory,
		sessionStore: sessionStore,
		oracle:       oracle,
		compiler:     compiler,
		publisher:    publisher,
		natsPub:      natsPub,
		hub:          hub,
		logger:       sysLogger,
		engineLog:    engineLog,
		engineCfg:    engineCfg,
	}
}

func (s *interviewService) CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	questionnaireID, err := uuid.Parse(req.QuestionnaireId)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid questionnaire id")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	questionnaire, err := uow.QuestionnaireRepository().FindOne(ctx, specification.ByID{ID: questionnaireID})
	if err != nil {
		return nil, err
	}
	if questionnaire == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "questionnaire not found")
	}
	if len(questionnaire.Questions) == 0 {
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "questionnaire has no questions")
	}

	sessionID := uuid.NewString()
	engine := intake.NewEngine(questionnaire.Questions, s.oracle, s.engineCfg, s.engineLog)

	first := questionnaire.Questions[0]
	engine.RecordAssistant(constant.GreetingLine)
	engine.RecordAssistant(first.Text)

	now := time.Now()
	sess := &store.InterviewSession{
		ID:              sessionID,
		QuestionnaireID: questionnaire.Id.String(),
		Status:          store.StatusActive,
		State:           engine.State(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.sessionStore.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.engines.Store(sessionID, engine)

	s.logger.Info(constant.ModuleInterview, "Session created", map[string]interface{}{
		"session_id":       sessionID,
		"questionnaire_id": questionnaire.Id,
		"question_count":   len(questionnaire.Questions),
	})
	s.publishEvent(events.TypeSessionStarted, sessionID, map[string]interface{}{
		"questionnaire_id": questionnaire.Id.String(),
	})

	return &dto.CreateSessionResponse{
		SessionId:     sessionID,
		Greeting:      constant.GreetingLine,
		FirstQuestion: first.Text,
		Emotion:       intake.EmotionNeutral,
		TotalCount:    len(questionnaire.Questions),
	}, nil
}

func (s *interviewService) SubmitAnswer(ctx context.Context, sessionID string, req *dto.SubmitAnswerRequest) (*dto.SubmitAnswerResponse, error) {
	if _, busy := s.inFlight.LoadOrStore(sessionID, struct{}{}); busy {
		return nil, fiber.NewError(fiber.StatusConflict, "a turn is already being processed for this session")
	}
	defer s.inFlight.Delete(sessionID)

	sess, err := s.sessionStore.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	if sess.Status != store.StatusActive {
		return nil, fiber.NewError(fiber.StatusConflict, "interview already complete")
	}

	engine, bank, err := s.engineFor(ctx, sess)
	if err != nil {
		return nil, err
	}

	result, err := engine.Submit(ctx, req.Utterance)
	if err != nil {
		switch {
		case errors.Is(err, intake.ErrBlankUtterance):
			return nil, fiber.NewError(fiber.StatusBadRequest, "utterance is empty")
		case errors.Is(err, intake.ErrSessionComplete):
			return nil, fiber.NewError(fiber.StatusConflict, "interview already complete")
		case errors.Is(err, intake.ErrTurnSuperseded):
			return nil, fiber.NewError(fiber.StatusConflict, "utterance superseded by a newer one")
		default:
			return nil, err
		}
	}

	resp := &dto.SubmitAnswerResponse{
		Reply:      result.Reply,
		Emotion:    result.Emotion,
		Sufficient: result.Sufficient,
		CoveredIds: result.CoveredIds,
		Completed:  result.Completed,
	}
	if result.NextQuestion != nil {
		resp.NextQuestion = result.NextQuestion.Text
	}
	if result.Completed {
		engine.RecordAssistant(constant.ClosingLine)
		resp.Closing = constant.ClosingLine
	}

	sess.State = engine.State()
	resp.Progress = dto.Progress{
		AnsweredCount: len(sess.State.Answers),
		TotalCount:    len(bank),
	}
	if err := s.sessionStore.Save(ctx, sess); err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.SendUpdate(websocket.LiveUpdate{
			SessionId:  sessionID,
			Reply:      resp.Reply,
			Emotion:    resp.Emotion,
			Sufficient: resp.Sufficient,
			Completed:  resp.Completed,
			Answered:   resp.Progress.AnsweredCount,
			Total:      resp.Progress.TotalCount,
		})
	}

	if result.Completed {
		s.finalize(ctx, sess, bank)
	}

	return resp, nil
}

// finalize compiles the summary for a just-completed interview and hands the
// session to the archive worker. Summary failures never undo completion: the
// compiler degrades to sentinel answers instead.
func (s *interviewService) finalize(ctx context.Context, sess *store.InterviewSession, bank []intake.Question) {
	sess.Status = store.StatusSummarizing
	if err := s.sessionStore.Save(ctx, sess); err != nil {
		s.logger.Error(constant.ModuleInterview, "Failed to persist summarizing status", map[string]interface{}{
			"session_id": sess.ID, "error": err.Error(),
		})
	}

	result := s.compiler.Summarize(ctx, sess.State.Transcript, bank)
	sess.FormattedAnswers = result.FormattedAnswers
	sess.Summary = result.Summary
	sess.Status = store.StatusCompleted
	if err := s.sessionStore.Save(ctx, sess); err != nil {
		s.logger.Error(constant.ModuleInterview, "Failed to persist completed session", map[string]interface{}{
			"session_id": sess.ID, "error": err.Error(),
		})
		return
	}

	s.engines.Delete(sess.ID)

	s.logger.Info(constant.ModuleInterview, "Interview completed", map[string]interface{}{
		"session_id": sess.ID,
		"answers":    len(sess.FormattedAnswers),
	})
	s.publishEvent(events.TypeInterviewCompleted, sess.ID, nil)
	if result.Summary == summary.FallbackNarrative {
		// The compiler degraded to sentinels; flag it for the ops dashboard.
		s.publishEvent(events.TypeSummaryFailed, sess.ID, nil)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, dto.ArchiveSessionMessage{SessionId: sess.ID}); err != nil {
			s.logger.Error(constant.ModuleInterview, "Failed to enqueue session for archiving", map[string]interface{}{
				"session_id": sess.ID, "error": err.Error(),
			})
		}
	}
}

func (s *interviewService) GetSession(ctx context.Context, sessionID string) (*dto.SessionDetailResponse, error) {
	sess, err := s.sessionStore.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	bank, err := s.bankFor(ctx, sess)
	if err != nil {
		return nil, err
	}

	resp := &dto.SessionDetailResponse{
		SessionId:       sess.ID,
		QuestionnaireId: sess.QuestionnaireID,
		Status:          sess.Status,
		Completed:       sess.State.Completed,
		Transcript:      sess.State.Transcript,
		Progress: dto.Progress{
			AnsweredCount: len(sess.State.Answers),
			TotalCount:    len(bank),
		},
	}
	if !sess.State.Completed && sess.State.CurrentIndex < len(bank) {
		resp.CurrentQuestion = bank[sess.State.CurrentIndex].Text
	}
	return resp, nil
}

// ListSessions enumerates every live session in the store, newest first.
// Archived interviews are served from Postgres, not from here.
func (s *interviewService) ListSessions(ctx context.Context) ([]*dto.SessionListItem, error) {
	sessions, err := s.sessionStore.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.SessionListItem, 0, len(sessions))
	for _, sess := range sessions {
		items = append(items, &dto.SessionListItem{
			SessionId:       sess.ID,
			QuestionnaireId: sess.QuestionnaireID,
			Status:          sess.Status,
			Completed:       sess.State.Completed,
			AnsweredCount:   len(sess.State.Answers),
			CreatedAt:       sess.CreatedAt,
			UpdatedAt:       sess.UpdatedAt,
		})
	}
	return items, nil
}

func (s *interviewService) GetSummary(ctx context.Context, sessionID string) (*dto.SummaryResponse, error) {
	sess, err := s.sessionStore.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	if sess.Status == store.StatusActive {
		return nil, fiber.NewError(fiber.StatusConflict, "interview is still in progress")
	}

	// A crash between completion and summary leaves no formatted answers;
	// recompile from the transcript. Repeated calls reuse the stored result.
	if len(sess.FormattedAnswers) == 0 {
		bank, err := s.bankFor(ctx, sess)
		if err != nil {
			return nil, err
		}
		result := s.compiler.Summarize(ctx, sess.State.Transcript, bank)
		sess.FormattedAnswers = result.FormattedAnswers
		sess.Summary = result.Summary
		sess.Status = store.StatusCompleted
		if err := s.sessionStore.Save(ctx, sess); err != nil {
			return nil, err
		}
	}

	answers := make([]dto.FormattedAnswerResponse, 0, len(sess.FormattedAnswers))
	for _, fa := range sess.FormattedAnswers {
		answers = append(answers, dto.FormattedAnswerResponse{
			QuestionId:      fa.QuestionId,
			QuestionText:    fa.QuestionText,
			ExtractedAnswer: fa.ExtractedAnswer,
			Confidence:      fa.Confidence,
		})
	}

	return &dto.SummaryResponse{
		SessionId:        sess.ID,
		Status:           sess.Status,
		FormattedAnswers: answers,
		Summary:          sess.Summary,
	}, nil
}

func (s *interviewService) DeleteSession(ctx context.Context, sessionID string) error {
	sess, err := s.sessionStore.Find(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	s.engines.Delete(sessionID)
	s.inFlight.Delete(sessionID)
	return s.sessionStore.Delete(ctx, sessionID)
}

// engineFor returns the live engine for a session, rebuilding it from the
// persisted state when this instance has never seen the session.
func (s *interviewService) engineFor(ctx context.Context, sess *store.InterviewSession) (*intake.Engine, []intake.Question, error) {
	bank, err := s.bankFor(ctx, sess)
	if err != nil {
		return nil, nil, err
	}

	if v, ok := s.engines.Load(sess.ID); ok {
		return v.(*intake.Engine), bank, nil
	}

	engine := intake.Restore(bank, s.oracle, s.engineCfg, s.engineLog, sess.State)
	actual, _ := s.engines.LoadOrStore(sess.ID, engine)
	return actual.(*intake.Engine), bank, nil
}

func (s *interviewService) bankFor(ctx context.Context, sess *store.InterviewSession) ([]intake.Question, error) {
	questionnaireID, err := uuid.Parse(sess.QuestionnaireID)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "session has invalid questionnaire id")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	questionnaire, err := uow.QuestionnaireRepository().FindOne(ctx, specification.ByID{ID: questionnaireID})
	if err != nil {
		return nil, err
	}
	if questionnaire == nil {
		return nil, fiber.NewError(fiber.StatusConflict, "questionnaire for this session no longer exists")
	}
	return questionnaire.Questions, nil
}

// publishEvent reports an operational event to NATS, best effort.
func (s *interviewService) publishEvent(eventType, sessionID string, extra map[string]interface{}) {
	if s.natsPub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.natsPub.Publish(ctx, events.NewSessionEvent(eventType, sessionID, extra)); err != nil {
		s.logger.Warn(constant.ModuleInterview, "Failed to publish event", map[string]interface{}{
			"event": eventType, "session_id": sessionID, "error": err.Error(),
		})
	}
}
