// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package dashboard

import (
	"sync"

	"github.com/danielhkuo/votedeck/models"
)

// hub fans snapshots out to subscribers. Each subscriber has a one-slot
// buffer holding the newest undelivered snapshot.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan models.State
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan models.State)}
}

func (h *hub) subscribe() (<-chan models.State, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan models.State, 1)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *hub) broadcast(s models.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		// Drop the stale snapshot
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
