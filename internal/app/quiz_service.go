package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"topic-quiz-service/internal/domain"
)

const (
	// DefaultSampleSize caps how many questions one attempt receives.
	DefaultSampleSize = 10
	// DefaultPointsPerQuestion is awarded per correct answer.
	DefaultPointsPerQuestion = 2
)

// TopicStore persists topics.
type TopicStore interface {
	CreateTopic(ctx context.Context, name string) (domain.Topic, error)
	DeleteTopic(ctx context.Context, id int64) error
	ListTopics(ctx context.Context) ([]domain.Topic, error)
}

// QuestionStore persists questions and serves the admin listings.
type QuestionStore interface {
	CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error)
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
	ListQuestions(ctx context.Context) ([]domain.QuestionSummary, error)
}

// QuestionSampler draws a random question set for a topic.
type QuestionSampler interface {
	Sample(ctx context.Context, topicID int64, limit int) ([]domain.Question, error)
}

// AnswerKeyRepository resolves the correct option label per question id
// for a topic, typically through a cache in front of the store.
type AnswerKeyRepository interface {
	CorrectOptions(ctx context.Context, topicID int64) (map[int64]string, error)
	Invalidate(ctx context.Context, topicID int64) error
}

// ResultStore persists completed attempts and their rankings.
type ResultStore interface {
	InsertResult(ctx context.Context, r domain.Result) (domain.Result, error)
	GetResult(ctx context.Context, id int64) (domain.Result, error)
	DeleteResult(ctx context.Context, id int64) error
	RecomputeRanks(ctx context.Context, topicID int64) error
	Leaderboard(ctx context.Context, topicID int64) ([]domain.LeaderboardEntry, error)
	ListRankings(ctx context.Context) ([]domain.RankingRow, error)
}

// SessionStore holds per-player state keyed by an opaque session token.
type SessionStore interface {
	SavePlayer(ctx context.Context, token string, p domain.PlayerSession) error
	GetPlayer(ctx context.Context, token string) (domain.PlayerSession, error)
	SaveAttempt(ctx context.Context, token string, a domain.Attempt) error
	// ConsumeAttempt returns and invalidates the stored attempt; it
	// reports domain.ErrAttemptNotFound when nothing was recorded.
	ConsumeAttempt(ctx context.Context, token string) (domain.Attempt, error)
}

// QuizService contains the player-facing use cases.
type QuizService struct {
	topics      TopicStore
	sampler     QuestionSampler
	answers     AnswerKeyRepository
	results     ResultStore
	sessions    SessionStore
	broadcaster *LeaderboardBroadcaster

	sampleSize int
	points     int
	now        func() time.Time

	locks topicLocks
}

func NewQuizService(
	topics TopicStore,
	sampler QuestionSampler,
	answers AnswerKeyRepository,
	results ResultStore,
	sessions SessionStore,
	broadcaster *LeaderboardBroadcaster,
) *QuizService {
	return &QuizService{
		topics:      topics,
		sampler:     sampler,
		answers:     answers,
		results:     results,
		sessions:    sessions,
		broadcaster: broadcaster,
		sampleSize:  DefaultSampleSize,
		points:      DefaultPointsPerQuestion,
		now:         time.Now,
	}
}

// WithQuizRules overrides the sample size and per-question points.
func (s *QuizService) WithQuizRules(sampleSize, points int) *QuizService {
	if sampleSize > 0 {
		s.sampleSize = sampleSize
	}
	if points > 0 {
		s.points = points
	}
	return s
}

// WithClock is test-only for deterministic timestamps.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// RegisterPlayer creates a session for a display name and returns its token.
func (s *QuizService) RegisterPlayer(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: player name required", domain.ErrInvalidInput)
	}
	token := uuid.NewString()
	if err := s.sessions.SavePlayer(ctx, token, domain.PlayerSession{Name: name}); err != nil {
		return "", err
	}
	return token, nil
}

// Topics lists all topics.
func (s *QuizService) Topics(ctx context.Context) ([]domain.Topic, error) {
	return s.topics.ListTopics(ctx)
}

// StartAttempt samples questions for the topic, records their ids under
// the player's session, and returns the player-facing views. Questions
// with an incomplete option set are discarded after sampling with no
// backfill, so fewer than the limit may come back.
func (s *QuizService) StartAttempt(ctx context.Context, token string, topicID int64) ([]domain.QuestionView, error) {
	player, err := s.sessions.GetPlayer(ctx, token)
	if err != nil {
		return nil, err
	}

	sampled, err := s.sampler.Sample(ctx, topicID, s.sampleSize)
	if err != nil {
		return nil, err
	}

	views := make([]domain.QuestionView, 0, len(sampled))
	ids := make([]int64, 0, len(sampled))
	for _, q := range sampled {
		if !q.Complete() {
			continue
		}
		views = append(views, q.View())
		ids = append(ids, q.ID)
	}

	attempt := domain.Attempt{
		PlayerName:  player.Name,
		TopicID:     topicID,
		QuestionIDs: ids,
		StartedAt:   s.now(),
	}
	if err := s.sessions.SaveAttempt(ctx, token, attempt); err != nil {
		return nil, err
	}
	return views, nil
}

// SubmitAnswers consumes the session's attempt, scores the submitted
// answers against the stored correct options, records a result, and
// refreshes the topic's rankings. The attempt is single use: a repeat
// submission reports domain.ErrAttemptNotFound.
func (s *QuizService) SubmitAnswers(ctx context.Context, token string, topicID int64, submitted map[int64]string) (domain.Result, domain.Leaderboard, error) {
	attempt, err := s.sessions.ConsumeAttempt(ctx, token)
	if err != nil {
		return domain.Result{}, domain.Leaderboard{}, err
	}
	if attempt.TopicID != topicID || len(attempt.QuestionIDs) == 0 {
		return domain.Result{}, domain.Leaderboard{}, domain.ErrAttemptNotFound
	}

	correct, err := s.answers.CorrectOptions(ctx, topicID)
	if err != nil {
		return domain.Result{}, domain.Leaderboard{}, err
	}

	score := scoreAnswers(attempt.QuestionIDs, correct, submitted, s.points)

	result, err := s.results.InsertResult(ctx, domain.Result{
		PlayerName: attempt.PlayerName,
		TopicID:    topicID,
		Score:      score,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return domain.Result{}, domain.Leaderboard{}, err
	}

	// The insert has committed; a failed recompute leaves ranks stale
	// until the next one, which is acceptable.
	lb, err := s.RefreshRanks(ctx, topicID)
	if err != nil {
		log.Printf("rank recompute for topic %d failed: %v", topicID, err)
		return result, domain.Leaderboard{TopicID: topicID, UpdatedAt: s.now()}, nil
	}
	return result, lb, nil
}

// Leaderboard returns the current standings for a topic.
func (s *QuizService) Leaderboard(ctx context.Context, topicID int64) (domain.Leaderboard, error) {
	entries, err := s.results.Leaderboard(ctx, topicID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{TopicID: topicID, Entries: entries, UpdatedAt: s.now()}, nil
}

// SubscribeLeaderboard returns a channel receiving standings snapshots
// for a topic. The caller must invoke cancel to avoid leaks.
func (s *QuizService) SubscribeLeaderboard(ctx context.Context, topicID int64) (<-chan domain.Leaderboard, func(), error) {
	lb, err := s.Leaderboard(ctx, topicID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.broadcaster.Subscribe(topicID)
	s.broadcaster.Publish(topicID, lb)
	return ch, cancel, nil
}

// RefreshRanks recomputes the topic's rank positions and publishes the
// fresh leaderboard to subscribers. Recomputes for one topic are
// serialized here; the store additionally runs the read-then-write in a
// single transaction.
func (s *QuizService) RefreshRanks(ctx context.Context, topicID int64) (domain.Leaderboard, error) {
	unlock := s.locks.lock(topicID)
	defer unlock()

	if err := s.results.RecomputeRanks(ctx, topicID); err != nil {
		return domain.Leaderboard{}, err
	}
	lb, err := s.Leaderboard(ctx, topicID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	s.broadcaster.Publish(topicID, lb)
	return lb, nil
}

// scoreAnswers awards a fixed number of points per question whose
// submitted option label matches the correct one. A missing or unknown
// answer is simply wrong; there is no partial credit and no penalty.
func scoreAnswers(questionIDs []int64, correct, submitted map[int64]string, points int) int {
	score := 0
	for _, id := range questionIDs {
		want, ok := correct[id]
		if !ok {
			continue
		}
		if got, ok := submitted[id]; ok && got == want {
			score += points
		}
	}
	return score
}

// topicLocks hands out one mutex per topic id.
type topicLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (l *topicLocks) lock(topicID int64) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := l.locks[topicID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[topicID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
