package app

import (
	"sync"
	"time"

	"trivia-rank-service/internal/ranking"
)

// RankUpdate announces that standings changed.
type RankUpdate struct {
	Policy    string    `json:"policy"`
	Ranked    int       `json:"ranked"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Hub fans rank updates out to live subscribers such as websocket clients.
type Hub struct {
	mu          sync.Mutex
	last        RankUpdate
	subscribers map[chan RankUpdate]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan RankUpdate]struct{})}
}

// Publish is shaped to be registered with ranking.Engine.OnRecompute.
func (h *Hub) Publish(res ranking.Result) {
	h.broadcast(RankUpdate{Policy: res.Policy, Ranked: res.Ranked, UpdatedAt: res.ComputedAt})
}

// Subscribe returns a channel that receives every subsequent update, primed
// with the most recent one. The caller must invoke cancel to avoid leaks.
func (h *Hub) Subscribe() (<-chan RankUpdate, func()) {
	ch := make(chan RankUpdate, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	// the buffer is empty here, so priming under the lock cannot block
	ch <- h.last
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers reports how many subscriptions are open.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) broadcast(u RankUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = u
	for ch := range h.subscribers {
		select {
		case ch <- u:
		default:
			// slow subscriber: drop its oldest pending update so the newest always lands
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	}
}
