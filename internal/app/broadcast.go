package app

import (
	"sync"

	"topic-quiz-service/internal/domain"
)

// LeaderboardBroadcaster fans leaderboard snapshots out to per-topic
// subscribers. Sends never block: a slow subscriber loses its oldest
// pending snapshot so fresher state always gets through.
type LeaderboardBroadcaster struct {
	mu   sync.Mutex
	subs map[int64]map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardBroadcaster() *LeaderboardBroadcaster {
	return &LeaderboardBroadcaster{
		subs: make(map[int64]map[chan domain.Leaderboard]struct{}),
	}
}

// Subscribe registers a channel for a topic's snapshots. The returned
// cancel function must be called to release the subscription.
func (b *LeaderboardBroadcaster) Subscribe(topicID int64) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	b.mu.Lock()
	if b.subs[topicID] == nil {
		b.subs[topicID] = make(map[chan domain.Leaderboard]struct{})
	}
	b.subs[topicID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[topicID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, topicID)
			}
		}
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of the topic.
func (b *LeaderboardBroadcaster) Publish(topicID int64, lb domain.Leaderboard) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[topicID] {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
