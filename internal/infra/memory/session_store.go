package memory

import (
	"context"
	"sync"

	"topic-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore.
type SessionStore struct {
	mu       sync.Mutex
	players  map[string]domain.PlayerSession
	attempts map[string]domain.Attempt
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		players:  make(map[string]domain.PlayerSession),
		attempts: make(map[string]domain.Attempt),
	}
}

func (s *SessionStore) SavePlayer(_ context.Context, token string, p domain.PlayerSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[token] = p
	return nil
}

func (s *SessionStore) GetPlayer(_ context.Context, token string) (domain.PlayerSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[token]
	if !ok {
		return domain.PlayerSession{}, domain.ErrSessionNotFound
	}
	return p, nil
}

func (s *SessionStore) SaveAttempt(_ context.Context, token string, a domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[token] = a
	return nil
}

// ConsumeAttempt returns and removes the stored attempt; it is single use.
func (s *SessionStore) ConsumeAttempt(_ context.Context, token string) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[token]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	delete(s.attempts, token)
	return a, nil
}
