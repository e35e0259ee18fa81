package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"topic-quiz-service/internal/app"
	"topic-quiz-service/internal/domain"
)

// Store is an in-memory implementation of the app store interfaces,
// used in tests and as the fallback when postgres is not configured.
// Deleting a topic cascades to its questions and results, matching the
// relational schema.
type Store struct {
	mu        sync.RWMutex
	topics    map[int64]domain.Topic
	questions map[int64]domain.Question
	results   map[int64]domain.Result
	admins    map[string]domain.Admin

	nextTopicID    int64
	nextQuestionID int64
	nextResultID   int64

	rndMu sync.Mutex
	rnd   *rand.Rand
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		topics:    make(map[int64]domain.Topic),
		questions: make(map[int64]domain.Question),
		results:   make(map[int64]domain.Result),
		admins:    make(map[string]domain.Admin),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

// WithClock is test-only for deterministic result timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) CreateTopic(_ context.Context, name string) (domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTopicID++
	topic := domain.Topic{ID: s.nextTopicID, Name: name}
	s.topics[topic.ID] = topic
	return topic, nil
}

func (s *Store) DeleteTopic(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.topics[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.topics, id)
	for qid, q := range s.questions {
		if q.TopicID == id {
			delete(s.questions, qid)
		}
	}
	for rid, r := range s.results {
		if r.TopicID == id {
			delete(s.results, rid)
		}
	}
	return nil
}

func (s *Store) ListTopics(_ context.Context) ([]domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topics := make([]domain.Topic, 0, len(s.topics))
	for _, t := range s.topics {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics, nil
}

func (s *Store) CreateQuestion(_ context.Context, q domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.topics[q.TopicID]; !ok {
		return domain.Question{}, domain.ErrNotFound
	}
	s.nextQuestionID++
	q.ID = s.nextQuestionID
	s.questions[q.ID] = q
	return q, nil
}

func (s *Store) GetQuestion(_ context.Context, id int64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrNotFound
	}
	return q, nil
}

func (s *Store) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.questions, id)
	return nil
}

func (s *Store) ListQuestions(_ context.Context) ([]domain.QuestionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := make([]domain.QuestionSummary, 0, len(s.questions))
	for _, q := range s.questions {
		summaries = append(summaries, domain.QuestionSummary{
			ID:        q.ID,
			Question:  q.Question,
			TopicName: s.topics[q.TopicID].Name,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

// Sample draws up to limit random questions for the topic without
// repetition. Completeness filtering happens in the service, after
// sampling, so a topic full of malformed questions yields a short set.
func (s *Store) Sample(_ context.Context, topicID int64, limit int) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pool := make([]domain.Question, 0)
	for _, q := range s.questions {
		if q.TopicID == topicID {
			pool = append(pool, q)
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	// rnd is not safe for concurrent use.
	s.rndMu.Lock()
	s.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	s.rndMu.Unlock()
	if len(pool) > limit {
		pool = pool[:limit]
	}
	return pool, nil
}

// LoadAnswerKey returns the correct option label per question id for a topic.
func (s *Store) LoadAnswerKey(_ context.Context, topicID int64) (map[int64]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := make(map[int64]string)
	for _, q := range s.questions {
		if q.TopicID == topicID {
			key[q.ID] = q.CorrectOption
		}
	}
	return key, nil
}

func (s *Store) InsertResult(_ context.Context, r domain.Result) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.topics[r.TopicID]; !ok {
		return domain.Result{}, domain.ErrNotFound
	}
	s.nextResultID++
	r.ID = s.nextResultID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.results[r.ID] = r
	return r, nil
}

func (s *Store) GetResult(_ context.Context, id int64) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return domain.Result{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *Store) DeleteResult(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.results, id)
	return nil
}

// RecomputeRanks reassigns dense ranks for every result of the topic.
func (s *Store) RecomputeRanks(_ context.Context, topicID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := make([]domain.Result, 0)
	for _, r := range s.results {
		if r.TopicID == topicID {
			current = append(current, r)
		}
	}
	for _, r := range app.AssignRanks(current) {
		s.results[r.ID] = r
	}
	return nil
}

func (s *Store) Leaderboard(_ context.Context, topicID int64) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]domain.Result, 0)
	for _, r := range s.results {
		if r.TopicID == topicID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].RankPosition != rows[j].RankPosition {
			return rows[i].RankPosition < rows[j].RankPosition
		}
		return rows[i].ID < rows[j].ID
	})
	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, domain.LeaderboardEntry{
			PlayerName: r.PlayerName,
			Score:      r.Score,
			Rank:       r.RankPosition,
		})
	}
	return entries, nil
}

func (s *Store) ListRankings(_ context.Context) ([]domain.RankingRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]domain.RankingRow, 0, len(s.results))
	for _, r := range s.results {
		rows = append(rows, domain.RankingRow{
			ResultID:   r.ID,
			PlayerName: r.PlayerName,
			TopicName:  s.topics[r.TopicID].Name,
			Score:      r.Score,
			Rank:       r.RankPosition,
			CreatedAt:  r.CreatedAt,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TopicName != rows[j].TopicName {
			return rows[i].TopicName < rows[j].TopicName
		}
		return rows[i].Rank < rows[j].Rank
	})
	return rows, nil
}

func (s *Store) GetAdmin(_ context.Context, username string) (domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.admins[username]
	if !ok {
		return domain.Admin{}, domain.ErrNotFound
	}
	return a, nil
}

func (s *Store) UpsertAdmin(_ context.Context, a domain.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[a.Username] = a
	return nil
}
