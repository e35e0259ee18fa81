package redis

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AnswerKeyLoader fetches a topic's correct-option map from a backing store.
type AnswerKeyLoader interface {
	LoadAnswerKey(ctx context.Context, topicID int64) (map[int64]string, error)
}

// AnswerKeyRepository caches correct-option labels in Redis (one hash
// per topic) and falls back to a loader on cache miss.
// Stored as: HSET quiz:topic:{topicID}:answers {questionID} {label}
type AnswerKeyRepository struct {
	client *redis.Client
	loader AnswerKeyLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewAnswerKeyRepository(client *redis.Client, loader AnswerKeyLoader, ttl time.Duration) *AnswerKeyRepository {
	return &AnswerKeyRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *AnswerKeyRepository) CorrectOptions(ctx context.Context, topicID int64) (map[int64]string, error) {
	key := r.key(topicID)

	cached, err := r.client.HGetAll(ctx, key).Result()
	if err == nil && len(cached) > 0 {
		return parseAnswerHash(cached), nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := r.client.HGetAll(ctx, key).Result()
		if err == nil && len(cached) > 0 {
			return parseAnswerHash(cached), nil
		}

		answers, err := r.loader.LoadAnswerKey(ctx, topicID)
		if err != nil {
			return nil, err
		}
		if len(answers) == 0 {
			return answers, nil
		}

		fields := make(map[string]interface{}, len(answers))
		for questionID, label := range answers {
			fields[strconv.FormatInt(questionID, 10)] = label
		}
		pipe := r.client.Pipeline()
		pipe.HSet(ctx, key, fields)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return answers, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[int64]string), nil
}

// Invalidate drops the cached hash after a question mutation so scoring
// never sees a stale answer key beyond the in-flight request.
func (r *AnswerKeyRepository) Invalidate(ctx context.Context, topicID int64) error {
	return r.client.Del(ctx, r.key(topicID)).Err()
}

func (r *AnswerKeyRepository) key(topicID int64) string {
	return "quiz:topic:" + strconv.FormatInt(topicID, 10) + ":answers"
}

func (r *AnswerKeyRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	jitter := r.rnd.Int63n(jitterMax + 1)
	r.rndMu.Unlock()
	return r.ttl + time.Duration(jitter)
}

func parseAnswerHash(raw map[string]string) map[int64]string {
	answers := make(map[int64]string, len(raw))
	for field, label := range raw {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		answers[id] = label
	}
	return answers
}
