package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"topic-quiz-service/internal/domain"
)

// QuestionLoader serves the hot read paths (sampling and answer keys)
// straight from a pgx pool.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

// Sample draws up to limit random questions for the topic. Randomness
// and de-duplication come from the database; completeness filtering is
// the caller's job so malformed questions still count against the limit.
func (l *QuestionLoader) Sample(ctx context.Context, topicID int64, limit int) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, topic_id, question, option1, option2, option3, option4, correct_option
		FROM questions
		WHERE topic_id = $1
		ORDER BY random()
		LIMIT $2`, topicID, limit)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %v: %w", err, domain.ErrStorageUnavailable)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0, limit)
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.TopicID, &q.Question, &q.Option1, &q.Option2, &q.Option3, &q.Option4, &q.CorrectOption); err != nil {
			return nil, fmt.Errorf("scan question: %v: %w", err, domain.ErrStorageUnavailable)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sample questions: %v: %w", err, domain.ErrStorageUnavailable)
	}
	return questions, nil
}

// LoadAnswerKey returns the correct option label per question id for a topic.
func (l *QuestionLoader) LoadAnswerKey(ctx context.Context, topicID int64) (map[int64]string, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, correct_option FROM questions WHERE topic_id = $1`, topicID)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %v: %w", err, domain.ErrStorageUnavailable)
	}
	defer rows.Close()

	key := make(map[int64]string)
	for rows.Next() {
		var id int64
		var label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, fmt.Errorf("scan answer key: %v: %w", err, domain.ErrStorageUnavailable)
		}
		key[id] = label
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load answer key: %v: %w", err, domain.ErrStorageUnavailable)
	}
	return key, nil
}
