package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"topic-quiz-service/internal/app"
	"topic-quiz-service/internal/domain"
)

// Store implements the app store interfaces on top of bun/Postgres.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateTopic(ctx context.Context, name string) (domain.Topic, error) {
	topic := domain.Topic{Name: name}
	if _, err := s.db.NewInsert().Model(&topic).Exec(ctx); err != nil {
		return domain.Topic{}, storageErr("create topic", err)
	}
	return topic, nil
}

func (s *Store) DeleteTopic(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*domain.Topic)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return storageErr("delete topic", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	topics := make([]domain.Topic, 0)
	if err := s.db.NewSelect().Model(&topics).Order("id ASC").Scan(ctx); err != nil {
		return nil, storageErr("list topics", err)
	}
	return topics, nil
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	if _, err := s.db.NewInsert().Model(&q).Exec(ctx); err != nil {
		return domain.Question{}, storageErr("create question", err)
	}
	return q, nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	var q domain.Question
	if err := s.db.NewSelect().Model(&q).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Question{}, storageErr("get question", err)
	}
	return q, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*domain.Question)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return storageErr("delete question", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ListQuestions(ctx context.Context) ([]domain.QuestionSummary, error) {
	rows := make([]domain.QuestionSummary, 0)
	err := s.db.NewSelect().
		ColumnExpr("q.id AS id, q.question AS question, t.name AS topic_name").
		TableExpr("questions AS q").
		Join("JOIN topics AS t ON t.id = q.topic_id").
		OrderExpr("q.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, storageErr("list questions", err)
	}
	return rows, nil
}

func (s *Store) InsertResult(ctx context.Context, r domain.Result) (domain.Result, error) {
	if _, err := s.db.NewInsert().Model(&r).Exec(ctx); err != nil {
		return domain.Result{}, storageErr("insert result", err)
	}
	return r, nil
}

func (s *Store) GetResult(ctx context.Context, id int64) (domain.Result, error) {
	var r domain.Result
	if err := s.db.NewSelect().Model(&r).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Result{}, storageErr("get result", err)
	}
	return r, nil
}

func (s *Store) DeleteResult(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*domain.Result)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return storageErr("delete result", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecomputeRanks reads the topic's results under row locks and writes
// dense ranks back inside one transaction, so concurrent submissions
// cannot interleave their recompute passes.
func (s *Store) RecomputeRanks(ctx context.Context, topicID int64) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		rows := make([]domain.Result, 0)
		if err := tx.NewSelect().
			Model(&rows).
			Where("topic_id = ?", topicID).
			For("UPDATE").
			Scan(ctx); err != nil {
			return err
		}
		for _, r := range app.AssignRanks(rows) {
			if _, err := tx.NewUpdate().
				Model((*domain.Result)(nil)).
				Set("rank_position = ?", r.RankPosition).
				Where("id = ?", r.ID).
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("recompute ranks", err)
	}
	return nil
}

func (s *Store) Leaderboard(ctx context.Context, topicID int64) ([]domain.LeaderboardEntry, error) {
	entries := make([]domain.LeaderboardEntry, 0)
	err := s.db.NewSelect().
		ColumnExpr("player_name, score, COALESCE(rank_position, 0) AS rank").
		TableExpr("results").
		Where("topic_id = ?", topicID).
		OrderExpr("rank_position ASC NULLS LAST, id ASC").
		Scan(ctx, &entries)
	if err != nil {
		return nil, storageErr("leaderboard", err)
	}
	return entries, nil
}

func (s *Store) ListRankings(ctx context.Context) ([]domain.RankingRow, error) {
	rows := make([]domain.RankingRow, 0)
	err := s.db.NewSelect().
		ColumnExpr("r.id AS result_id, r.player_name, t.name AS topic_name").
		ColumnExpr("r.score, COALESCE(r.rank_position, 0) AS rank, r.created_at").
		TableExpr("results AS r").
		Join("JOIN topics AS t ON t.id = r.topic_id").
		OrderExpr("t.name ASC, r.rank_position ASC NULLS LAST").
		Scan(ctx, &rows)
	if err != nil {
		return nil, storageErr("list rankings", err)
	}
	return rows, nil
}

func (s *Store) GetAdmin(ctx context.Context, username string) (domain.Admin, error) {
	var a domain.Admin
	if err := s.db.NewSelect().Model(&a).Where("username = ?", username).Scan(ctx); err != nil {
		return domain.Admin{}, storageErr("get admin", err)
	}
	return a, nil
}

func (s *Store) UpsertAdmin(ctx context.Context, a domain.Admin) error {
	_, err := s.db.NewInsert().
		Model(&a).
		On("CONFLICT (username) DO UPDATE").
		Set("password_hash = EXCLUDED.password_hash").
		Exec(ctx)
	if err != nil {
		return storageErr("upsert admin", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStorageUnavailable)
}
