// Package redisstore is the multi-instance variant of the live session
// store. Sessions survive a process restart and are visible to every
// backend replica.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"medintake-be/internal/repository/contract"
	"medintake-be/pkg/store"
)

const keyPrefix = "intake:session:"

type SessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionRepository(rdb *redis.Client, ttl time.Duration) contract.SessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionRepository{
		rdb: rdb,
		ttl: ttl,
	}
}

func (r *SessionRepository) Save(ctx context.Context, session *store.InterviewSession) error {
	session.UpdatedAt = time.Now()
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	return r.rdb.Set(ctx, keyPrefix+session.ID, data, r.ttl).Err()
}

func (r *SessionRepository) Find(ctx context.Context, id string) (*store.InterviewSession, error) {
	data, err := r.rdb.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var session store.InterviewSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return &session, nil
}

func (r *SessionRepository) ListAll(ctx context.Context) ([]*store.InterviewSession, error) {
	var sessions []*store.InterviewSession

	iter := r.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Expired between scan and read
				continue
			}
			return nil, err
		}
		var session store.InterviewSession
		if err := json.Unmarshal(data, &session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session at %s: %w", iter.Val(), err)
		}
		sessions = append(sessions, &session)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, keyPrefix+id).Err()
}
