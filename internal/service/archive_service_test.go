package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"medintake-be/internal/dto"
	"medintake-be/internal/entity"
	"medintake-be/internal/repository/contract"
	"medintake-be/internal/repository/memory"
	"medintake-be/internal/repository/specification"
	"medintake-be/internal/repository/unitofwork"
	"medintake-be/pkg/intake"
	"medintake-be/pkg/store"
)

type recordingArchiveRepo struct {
	mu       sync.Mutex
	archived []*entity.ArchivedSession
}

func (r *recordingArchiveRepo) Create(ctx context.Context, session *entity.ArchivedSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archived = append(r.archived, session)
	return nil
}

func (r *recordingArchiveRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (r *recordingArchiveRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ArchivedSession, error) {
	return nil, nil
}

func (r *recordingArchiveRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ArchivedSession, error) {
	return nil, nil
}

func (r *recordingArchiveRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.archived)), nil
}

func (r *recordingArchiveRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.archived)
}

type archiveUow struct {
	repo *recordingArchiveRepo
}

func (u *archiveUow) Begin(ctx context.Context) error { return nil }
func (u *archiveUow) Commit() error                   { return nil }
func (u *archiveUow) Rollback() error                 { return nil }

func (u *archiveUow) QuestionnaireRepository() contract.QuestionnaireRepository { return nil }
func (u *archiveUow) ArchivedSessionRepository() contract.ArchivedSessionRepository {
	return u.repo
}
func (u *archiveUow) UserRepository() contract.UserRepository { return nil }

type archiveUowFactory struct {
	uow *archiveUow
}

func (f *archiveUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

func publishArchiveMessage(t *testing.T, pubSub *gochannel.GoChannel, topic, sessionID string) {
	t.Helper()
	payload, err := json.Marshal(dto.ArchiveSessionMessage{SessionId: sessionID})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := pubSub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestCompletedSessionIsArchived(t *testing.T) {
	const topic = "archive_test_completed"
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	repo := &recordingArchiveRepo{}
	sessionStore := memory.NewSessionRepository(time.Hour)
	ctx := context.Background()

	sessionID := uuid.NewString()
	sess := &store.InterviewSession{
		ID:              sessionID,
		QuestionnaireID: uuid.NewString(),
		Status:          store.StatusCompleted,
		State: intake.State{
			Transcript: []intake.Turn{{Role: intake.RolePatient, Text: "headaches", Timestamp: time.Now()}},
			Completed:  true,
		},
		FormattedAnswers: []intake.FormattedAnswer{
			{QuestionId: "chief_complaint", QuestionText: "What brings you in today?", ExtractedAnswer: "headaches", Confidence: intake.ConfidenceHigh},
		},
		Summary:   "Patient reports headaches.",
		CreatedAt: time.Now().Add(-5 * time.Minute),
		UpdatedAt: time.Now(),
	}
	if err := sessionStore.Save(ctx, sess); err != nil {
		t.Fatalf("save session: %v", err)
	}

	svc := NewArchiveService(pubSub, topic, &archiveUowFactory{uow: &archiveUow{repo: repo}}, sessionStore, nil, nopLogger{})
	if err := svc.Consume(ctx); err != nil {
		t.Fatalf("consume: %v", err)
	}

	publishArchiveMessage(t, pubSub, topic, sessionID)

	if !waitFor(t, 2*time.Second, func() bool { return repo.count() == 1 }) {
		t.Fatal("session was not archived")
	}

	repo.mu.Lock()
	got := repo.archived[0]
	repo.mu.Unlock()
	if got.Id.String() != sessionID {
		t.Errorf("archived id = %s, want %s", got.Id, sessionID)
	}
	if got.Summary != "Patient reports headaches." {
		t.Errorf("archived summary = %q", got.Summary)
	}
	if len(got.Transcript) != 1 || len(got.FormattedAnswers) != 1 {
		t.Errorf("archived transcript/answers = %d/%d, want 1/1", len(got.Transcript), len(got.FormattedAnswers))
	}
}

func TestVanishedSessionIsDropped(t *testing.T) {
	const topic = "archive_test_vanished"
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	repo := &recordingArchiveRepo{}
	sessionStore := memory.NewSessionRepository(time.Hour)
	ctx := context.Background()

	svc := NewArchiveService(pubSub, topic, &archiveUowFactory{uow: &archiveUow{repo: repo}}, sessionStore, nil, nopLogger{})
	if err := svc.Consume(ctx); err != nil {
		t.Fatalf("consume: %v", err)
	}

	publishArchiveMessage(t, pubSub, topic, uuid.NewString())

	// The message should be acked without producing an archive record.
	time.Sleep(200 * time.Millisecond)
	if repo.count() != 0 {
		t.Errorf("archived = %d, want 0", repo.count())
	}
}

func TestSummarizingSessionIsRetried(t *testing.T) {
	const topic = "archive_test_retry"
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	repo := &recordingArchiveRepo{}
	sessionStore := memory.NewSessionRepository(time.Hour)
	ctx := context.Background()

	sessionID := uuid.NewString()
	sess := &store.InterviewSession{
		ID:              sessionID,
		QuestionnaireID: uuid.NewString(),
		Status:          store.StatusSummarizing,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := sessionStore.Save(ctx, sess); err != nil {
		t.Fatalf("save session: %v", err)
	}

	svc := NewArchiveService(pubSub, topic, &archiveUowFactory{uow: &archiveUow{repo: repo}}, sessionStore, nil, nopLogger{})
	if err := svc.Consume(ctx); err != nil {
		t.Fatalf("consume: %v", err)
	}

	publishArchiveMessage(t, pubSub, topic, sessionID)

	// Flip the session to completed; the nacked message is redelivered and
	// should now go through.
	time.Sleep(100 * time.Millisecond)
	sess.Status = store.StatusCompleted
	if err := sessionStore.Save(ctx, sess); err != nil {
		t.Fatalf("update session: %v", err)
	}

	if !waitFor(t, 3*time.Second, func() bool { return repo.count() == 1 }) {
		t.Fatal("session was never archived after summary finished")
	}
}
