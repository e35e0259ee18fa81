package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// AnswerKeyLoader fetches a topic's correct-option map from a backing store.
type AnswerKeyLoader interface {
	LoadAnswerKey(ctx context.Context, topicID int64) (map[int64]string, error)
}

// AnswerKeyRepository caches answer keys with TTL to avoid hitting the
// store on every submission.
type AnswerKeyRepository struct {
	loader AnswerKeyLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[int64]cachedKey
}

type cachedKey struct {
	key       map[int64]string
	expiresAt time.Time
}

func NewAnswerKeyRepository(loader AnswerKeyLoader, ttl time.Duration) *AnswerKeyRepository {
	return &AnswerKeyRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedKey),
	}
}

func (r *AnswerKeyRepository) CorrectOptions(ctx context.Context, topicID int64) (map[int64]string, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[topicID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.key, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(sfKey(topicID), func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[topicID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.key, nil
		}
		r.mu.RUnlock()

		key, err := r.loader.LoadAnswerKey(ctx, topicID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[topicID] = cachedKey{key: key, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[int64]string), nil
}

// Invalidate drops the cached key after a question mutation.
func (r *AnswerKeyRepository) Invalidate(_ context.Context, topicID int64) error {
	r.mu.Lock()
	delete(r.cache, topicID)
	r.mu.Unlock()
	return nil
}

func (r *AnswerKeyRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	jitter := r.rnd.Int63n(jitterMax + 1)
	r.rndMu.Unlock()
	return r.ttl + time.Duration(jitter)
}

func sfKey(topicID int64) string {
	return "topic-" + strconv.FormatInt(topicID, 10)
}
