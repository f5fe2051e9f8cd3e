package contract

import (
	"context"

	"medintake-be/pkg/store"
)

// SessionStore holds live interview sessions between turns. Implementations
// are TTL-based; an abandoned interview expires instead of lingering.
type SessionStore interface {
	Save(ctx context.Context, session *store.InterviewSession) error
	Find(ctx context.Context, id string) (*store.InterviewSession, error)
	ListAll(ctx context.Context) ([]*store.InterviewSession, error)
	Delete(ctx context.Context, id string) error
}
