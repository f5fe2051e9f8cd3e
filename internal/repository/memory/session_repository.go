package memory

import (
	"context"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"medintake-be/internal/repository/contract"
	"medintake-be/pkg/store"
)

type SessionRepository struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewSessionRepository creates an in-process TTL store for live interview
// sessions. Abandoned interviews fall out after ttl; the purge interval is
// fixed at 10 minutes.
func NewSessionRepository(ttl time.Duration) contract.SessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionRepository{
		cache: cache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

func (r *SessionRepository) Save(ctx context.Context, session *store.InterviewSession) error {
	session.UpdatedAt = time.Now()
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Find(ctx context.Context, id string) (*store.InterviewSession, error) {
	if x, found := r.cache.Get(id); found {
		return x.(*store.InterviewSession), nil
	}
	return nil, nil
}

func (r *SessionRepository) ListAll(ctx context.Context) ([]*store.InterviewSession, error) {
	items := r.cache.Items()
	sessions := make([]*store.InterviewSession, 0, len(items))
	for _, item := range items {
		sessions = append(sessions, item.Object.(*store.InterviewSession))
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	r.cache.Delete(id)
	return nil
}
