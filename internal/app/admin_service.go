package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"topic-quiz-service/internal/domain"
)

// AdminStore persists administrator credentials.
type AdminStore interface {
	GetAdmin(ctx context.Context, username string) (domain.Admin, error)
	UpsertAdmin(ctx context.Context, a domain.Admin) error
}

// AdminService implements the admin gate and the mutation operations
// behind it. Authorization mints an HS256 token after a bcrypt check;
// every mutation handler verifies the token first.
type AdminService struct {
	admins    AdminStore
	topics    TopicStore
	questions QuestionStore
	answers   AnswerKeyRepository
	results   ResultStore
	quiz      *QuizService

	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAdminService(
	admins AdminStore,
	topics TopicStore,
	questions QuestionStore,
	answers AnswerKeyRepository,
	results ResultStore,
	quiz *QuizService,
	secret []byte,
	tokenTTL time.Duration,
) *AdminService {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &AdminService{
		admins:    admins,
		topics:    topics,
		questions: questions,
		answers:   answers,
		results:   results,
		quiz:      quiz,
		secret:    secret,
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// WithClock is test-only for deterministic token expiries.
func (s *AdminService) WithClock(now func() time.Time) *AdminService {
	s.now = now
	return s
}

// Authorize checks the credentials and returns a signed session token.
// An unknown username and a wrong password are indistinguishable to the
// caller.
func (s *AdminService) Authorize(ctx context.Context, username, password string) (string, error) {
	admin, err := s.admins.GetAdmin(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   admin.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	})
	return token.SignedString(s.secret)
}

// VerifyToken validates an admin session token and returns its subject.
// Any parse, signature or expiry failure is domain.ErrForbidden.
func (s *AdminService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return "", domain.ErrForbidden
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", domain.ErrForbidden
	}
	return subject, nil
}

// CreateCredential hashes the password with bcrypt and stores (or
// replaces) the credential. Plaintext never reaches the store.
func (s *AdminService) CreateCredential(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password required", domain.ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.admins.UpsertAdmin(ctx, domain.Admin{Username: username, PasswordHash: hash})
}

// HashPassword bcrypt-hashes a password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CreateTopic adds a topic.
func (s *AdminService) CreateTopic(ctx context.Context, name string) (domain.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Topic{}, fmt.Errorf("%w: topic name required", domain.ErrInvalidInput)
	}
	return s.topics.CreateTopic(ctx, name)
}

// DeleteTopic removes a topic; its questions and results go with it.
func (s *AdminService) DeleteTopic(ctx context.Context, id int64) error {
	if err := s.topics.DeleteTopic(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.answers.Invalidate(ctx, id)
}

// ListTopics lists all topics.
func (s *AdminService) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	return s.topics.ListTopics(ctx)
}

// CreateQuestion adds a question. The correct label must name one of
// the four options; option texts may be left empty, in which case the
// sampler will skip the question until they are filled in.
func (s *AdminService) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	if strings.TrimSpace(q.Question) == "" {
		return domain.Question{}, fmt.Errorf("%w: question text required", domain.ErrInvalidInput)
	}
	if !domain.ValidOptionLabel(q.CorrectOption) {
		return domain.Question{}, fmt.Errorf("%w: correct option must be one of option1..option4", domain.ErrInvalidInput)
	}
	created, err := s.questions.CreateQuestion(ctx, q)
	if err != nil {
		return domain.Question{}, err
	}
	if err := s.answers.Invalidate(ctx, created.TopicID); err != nil {
		return domain.Question{}, err
	}
	return created, nil
}

// DeleteQuestion removes a question; unknown ids are a no-op.
func (s *AdminService) DeleteQuestion(ctx context.Context, id int64) error {
	q, err := s.questions.GetQuestion(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.questions.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	return s.answers.Invalidate(ctx, q.TopicID)
}

// ListQuestions lists all questions with their topic names.
func (s *AdminService) ListQuestions(ctx context.Context) ([]domain.QuestionSummary, error) {
	return s.questions.ListQuestions(ctx)
}

// Rankings lists every result across topics, ordered by topic then rank.
func (s *AdminService) Rankings(ctx context.Context) ([]domain.RankingRow, error) {
	return s.results.ListRankings(ctx)
}

// DeleteResult removes a result and recomputes the topic's rankings.
// Unknown ids are a no-op and trigger no recompute.
func (s *AdminService) DeleteResult(ctx context.Context, id int64) error {
	result, err := s.results.GetResult(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.results.DeleteResult(ctx, id); err != nil {
		return err
	}
	_, err = s.quiz.RefreshRanks(ctx, result.TopicID)
	return err
}
