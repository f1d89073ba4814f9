package controller

import (
	"sync"

	"chamberctl/internal/models"
)

// subscriber channels are buffered; a slow consumer loses old snapshots
// rather than blocking the control loop.
const subscriberBuffer = 8

// Hub fans status snapshots out to subscribers (websocket sessions, mostly)
// and stamps each one with a strictly increasing sequence number. Consumers
// drop any snapshot whose sequence is not greater than the last one they
// accepted, which makes late or reordered delivery harmless.
type Hub struct {
	mu   sync.Mutex
	seq  uint64
	last models.StatusSnapshot
	have bool
	subs map[chan models.StatusSnapshot]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan models.StatusSnapshot]struct{})}
}

// Publish stamps the snapshot and delivers it to every subscriber. The
// sequence is assigned under the same lock that orders delivery, so no
// subscriber can ever observe sequences out of order on its own channel.
func (h *Hub) Publish(s models.StatusSnapshot) models.StatusSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	s.Sequence = h.seq
	h.last = s
	h.have = true

	for ch := range h.subs {
		select {
		case ch <- s:
		default:
			// Full buffer: evict the oldest and retry so the subscriber
			// always ends up with the newest state.
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
	return s
}

// Last returns the most recently published snapshot, if any.
func (h *Hub) Last() (models.StatusSnapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.have
}

func (h *Hub) Subscribe() chan models.StatusSnapshot {
	ch := make(chan models.StatusSnapshot, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
	return ch
}

func (h *Hub) Unsubscribe(ch chan models.StatusSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}
