package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"topic-quiz-service/internal/domain"
)

// SessionStore keeps player sessions and pending attempts in Redis so
// they survive process restarts and expire on their own.
// Keys:
//
//	quiz:player:{token}  -> JSON PlayerSession
//	quiz:attempt:{token} -> JSON Attempt
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) SavePlayer(ctx context.Context, token string, p domain.PlayerSession) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.playerKey(token), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save player session: %w", domain.ErrStorageUnavailable)
	}
	return nil
}

func (s *SessionStore) GetPlayer(ctx context.Context, token string) (domain.PlayerSession, error) {
	raw, err := s.client.Get(ctx, s.playerKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PlayerSession{}, domain.ErrSessionNotFound
		}
		return domain.PlayerSession{}, fmt.Errorf("get player session: %w", domain.ErrStorageUnavailable)
	}
	var p domain.PlayerSession
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.PlayerSession{}, err
	}
	return p, nil
}

func (s *SessionStore) SaveAttempt(ctx context.Context, token string, a domain.Attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.attemptKey(token), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save attempt: %w", domain.ErrStorageUnavailable)
	}
	return nil
}

// ConsumeAttempt fetches and deletes the attempt in one round trip, so
// two racing submissions can consume it at most once.
func (s *SessionStore) ConsumeAttempt(ctx context.Context, token string) (domain.Attempt, error) {
	raw, err := s.client.GetDel(ctx, s.attemptKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Attempt{}, domain.ErrAttemptNotFound
		}
		return domain.Attempt{}, fmt.Errorf("consume attempt: %w", domain.ErrStorageUnavailable)
	}
	var a domain.Attempt
	if err := json.Unmarshal(raw, &a); err != nil {
		return domain.Attempt{}, err
	}
	return a, nil
}

func (s *SessionStore) playerKey(token string) string {
	return "quiz:player:" + token
}

func (s *SessionStore) attemptKey(token string) string {
	return "quiz:attempt:" + token
}
