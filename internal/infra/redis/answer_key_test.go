package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"topic-quiz-service/internal/domain"
)

type staticLoader struct {
	key   map[int64]string
	calls int
}

func (l *staticLoader) LoadAnswerKey(_ context.Context, _ int64) (map[int64]string, error) {
	l.calls++
	return l.key, nil
}

func TestAnswerKeyRepositoryCachesInRedis(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)

	loader := &staticLoader{key: map[int64]string{11: domain.OptionTwo, 12: domain.OptionFour}}
	repo := NewAnswerKeyRepository(client, loader, time.Minute)

	key, err := repo.CorrectOptions(ctx, 5)
	if err != nil {
		t.Fatalf("correct options: %v", err)
	}
	if key[11] != domain.OptionTwo || key[12] != domain.OptionFour {
		t.Fatalf("unexpected key %v", key)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:topic:5:answers") {
		t.Fatalf("expected answers hash in redis")
	}

	// Second call should hit the cache.
	if _, err := repo.CorrectOptions(ctx, 5); err != nil {
		t.Fatalf("correct options: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestAnswerKeyRepositoryInvalidateDropsHash(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)

	loader := &staticLoader{key: map[int64]string{11: domain.OptionOne}}
	repo := NewAnswerKeyRepository(client, loader, time.Minute)

	if _, err := repo.CorrectOptions(ctx, 5); err != nil {
		t.Fatalf("correct options: %v", err)
	}
	if err := repo.Invalidate(ctx, 5); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quiz:topic:5:answers") {
		t.Fatalf("expected hash removed")
	}

	if _, err := repo.CorrectOptions(ctx, 5); err != nil {
		t.Fatalf("correct options: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidation, got %d calls", loader.calls)
	}
}

type fixedLoader struct {
	key map[int64]string
}

func (l fixedLoader) LoadAnswerKey(_ context.Context, _ int64) (map[int64]string, error) {
	return l.key, nil
}

func TestAnswerKeyRepositoryConcurrentFills(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)

	loader := fixedLoader{key: map[int64]string{11: domain.OptionOne, 12: domain.OptionThree}}
	repo := NewAnswerKeyRepository(client, loader, time.Minute)

	// Distinct topics bypass singleflight collapsing, so the jittered
	// TTL computation runs from several goroutines at once.
	var wg sync.WaitGroup
	for topicID := int64(1); topicID <= 6; topicID++ {
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				key, err := repo.CorrectOptions(ctx, id)
				if err != nil {
					t.Errorf("correct options: %v", err)
					return
				}
				if len(key) != 2 {
					t.Errorf("expected 2 entries, got %d", len(key))
				}
			}(topicID)
		}
	}
	wg.Wait()
}

func TestAnswerKeyRepositoryEmptyTopicNotCached(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)

	loader := &staticLoader{key: map[int64]string{}}
	repo := NewAnswerKeyRepository(client, loader, time.Minute)

	key, err := repo.CorrectOptions(ctx, 9)
	if err != nil {
		t.Fatalf("correct options: %v", err)
	}
	if len(key) != 0 {
		t.Fatalf("expected empty key, got %v", key)
	}
}
