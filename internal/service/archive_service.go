package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"medintake-be/internal/constant"
	"medintake-be/internal/dto"
	"medintake-be/internal/entity"
	"medintake-be/internal/pkg/logger"
	"medintake-be/internal/repository/contract"
	"medintake-be/internal/repository/unitofwork"
	"medintake-be/pkg/events"
	pktnats "medintake-be/pkg/nats"
	"medintake-be/pkg/store"
)

type IArchiveService interface {
	Consume(ctx context.Context) error
}

// archiveService moves completed interviews from the live session store into
// the durable archive table. It runs as a background consumer so a slow
// database write never blocks the patient-facing turn.
type archiveService struct {
	pubSub       *gochannel.GoChannel
	topicName    string
	uowFactory   unitofwork.RepositoryFactory
	sessionStore contract.SessionStore
	natsPub      *pktnats.Publisher
	logger       logger.ILogger
}

func NewArchiveService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	sessionStore contract.SessionStore,
	natsPub *pktnats.Publisher,
	sysLogger logger.ILogger,
) IArchiveService {
	return &archiveService{
		pubSub:       pubSub,
		topicName:    topicName,
		uowFactory:   uowFactory,
		sessionStore: sessionStore,
		natsPub:      natsPub,
		logger:       sysLogger,
	}
}

func (a *archiveService) Consume(ctx context.Context) error {
	messages, err := a.pubSub.Subscribe(ctx, a.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			a.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (a *archiveService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ArchiveSessionMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		a.logger.Error(constant.ModuleArchive, "Failed to unmarshal archive message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // invalid payloads never become valid
		return
	}

	sess, err := a.sessionStore.Find(ctx, payload.SessionId)
	if err != nil {
		a.logger.Error(constant.ModuleArchive, "Failed to load session", map[string]interface{}{
			"session_id": payload.SessionId, "error": err.Error(),
		})
		msg.Nack()
		return
	}
	if sess == nil {
		// Expired or deleted before archiving could run.
		a.logger.Warn(constant.ModuleArchive, "Session vanished before archiving", map[string]interface{}{"session_id": payload.SessionId})
		msg.Ack()
		return
	}
	if sess.Status != store.StatusCompleted {
		// Summary still being written; retry shortly.
		msg.Nack()
		return
	}

	sessionID, err := uuid.Parse(sess.ID)
	if err != nil {
		a.logger.Error(constant.ModuleArchive, "Session has non-uuid id", map[string]interface{}{"session_id": sess.ID})
		msg.Ack()
		return
	}
	questionnaireID, err := uuid.Parse(sess.QuestionnaireID)
	if err != nil {
		a.logger.Error(constant.ModuleArchive, "Session has non-uuid questionnaire id", map[string]interface{}{"session_id": sess.ID})
		msg.Ack()
		return
	}

	archived := &entity.ArchivedSession{
		Id:               sessionID,
		QuestionnaireId:  questionnaireID,
		Transcript:       sess.State.Transcript,
		FormattedAnswers: sess.FormattedAnswers,
		Summary:          sess.Summary,
		StartedAt:        sess.CreatedAt,
		CompletedAt:      sess.UpdatedAt,
	}

	uow := a.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		a.logger.Error(constant.ModuleArchive, "Failed to begin transaction", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if err := uow.ArchivedSessionRepository().Create(ctx, archived); err != nil {
		a.logger.Error(constant.ModuleArchive, "Failed to write archive record", map[string]interface{}{
			"session_id": sess.ID, "error": err.Error(),
		})
		msg.Nack()
		return
	}

	if err := uow.Commit(); err != nil {
		a.logger.Error(constant.ModuleArchive, "Failed to commit archive record", map[string]interface{}{
			"session_id": sess.ID, "error": err.Error(),
		})
		msg.Nack()
		return
	}

	a.logger.Info(constant.ModuleArchive, "Session archived", map[string]interface{}{"session_id": sess.ID})

	if a.natsPub != nil {
		pubCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.natsPub.Publish(pubCtx, events.NewSessionEvent(events.TypeSessionArchived, sess.ID, nil)); err != nil {
			a.logger.Warn(constant.ModuleArchive, "Failed to publish archive event", map[string]interface{}{
				"session_id": sess.ID, "error": err.Error(),
			})
		}
	}

	msg.Ack()
}
