package domain

import (
	"time"

	"github.com/uptrace/bun"
)

// Option labels form a closed set; correct_option always holds one of these.
const (
	OptionOne   = "option1"
	OptionTwo   = "option2"
	OptionThree = "option3"
	OptionFour  = "option4"
)

// ValidOptionLabel reports whether label names one of the four options.
func ValidOptionLabel(label string) bool {
	switch label {
	case OptionOne, OptionTwo, OptionThree, OptionFour:
		return true
	}
	return false
}

// Topic is a named category grouping questions.
type Topic struct {
	bun.BaseModel `bun:"table:topics"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

// Question is a multiple-choice question owned by a topic. The correct
// option label is deliberately excluded from JSON so it can never leak
// toward a client; use QuestionView for anything player-facing.
type Question struct {
	bun.BaseModel `bun:"table:questions"`

	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	TopicID       int64  `bun:"topic_id,notnull" json:"topicId"`
	Question      string `bun:"question,notnull" json:"question"`
	Option1       string `bun:"option1,notnull" json:"option1"`
	Option2       string `bun:"option2,notnull" json:"option2"`
	Option3       string `bun:"option3,notnull" json:"option3"`
	Option4       string `bun:"option4,notnull" json:"option4"`
	CorrectOption string `bun:"correct_option,notnull" json:"-"`
}

// Complete reports whether all four options are non-empty. Incomplete
// questions are never served to players.
func (q Question) Complete() bool {
	return q.Option1 != "" && q.Option2 != "" && q.Option3 != "" && q.Option4 != ""
}

// View strips the question down to what a player is allowed to see.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:       q.ID,
		Question: q.Question,
		Options: map[string]string{
			OptionOne:   q.Option1,
			OptionTwo:   q.Option2,
			OptionThree: q.Option3,
			OptionFour:  q.Option4,
		},
	}
}

// QuestionView is the player-facing projection of a question.
type QuestionView struct {
	ID       int64             `json:"id"`
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
}

// QuestionSummary is the admin listing row (question joined with its topic name).
type QuestionSummary struct {
	ID        int64  `json:"id"`
	Question  string `json:"question"`
	TopicName string `json:"topicName"`
}

// PlayerSession is the per-player server-held state behind a session token.
type PlayerSession struct {
	Name string `json:"name"`
}

// Attempt records which questions were dealt to a player for one quiz
// pass. It is stored under the player's session token and consumed
// exactly once on submission.
type Attempt struct {
	PlayerName  string    `json:"playerName"`
	TopicID     int64     `json:"topicId"`
	QuestionIDs []int64   `json:"questionIds"`
	StartedAt   time.Time `json:"startedAt"`
}

// Result is one completed attempt. RankPosition stays zero (NULL in the
// store) until the ranking engine has run for its topic.
type Result struct {
	bun.BaseModel `bun:"table:results"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	PlayerName   string    `bun:"player_name,notnull" json:"playerName"`
	TopicID      int64     `bun:"topic_id,notnull" json:"topicId"`
	Score        int       `bun:"score,notnull" json:"score"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`
	RankPosition int       `bun:"rank_position,nullzero" json:"rankPosition,omitempty"`
}

// LeaderboardEntry is a row of the per-topic standings.
type LeaderboardEntry struct {
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
	Rank       int    `json:"rank"`
}

// Leaderboard is the ordered standings snapshot for a topic.
type Leaderboard struct {
	TopicID   int64              `json:"topicId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// RankingRow is the admin cross-topic rankings listing.
type RankingRow struct {
	ResultID   int64     `json:"resultId"`
	PlayerName string    `json:"playerName"`
	TopicName  string    `json:"topicName"`
	Score      int       `json:"score"`
	Rank       int       `json:"rank"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Admin is a stored administrator credential. The hash is bcrypt.
type Admin struct {
	bun.BaseModel `bun:"table:admins"`

	Username     string `bun:"username,pk" json:"username"`
	PasswordHash string `bun:"password_hash,notnull" json:"-"`
}
