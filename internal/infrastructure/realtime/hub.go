// Package realtime holds the subscriber registry that fans notification
// events out to every connected client.
package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/api/metrics"
	"github.com/taskhub/task-tracker/internal/core/domain"
)

const defaultSubscriberBuffer = 64

// Subscriber is one connected client. Events arrive on C until the
// subscriber is removed, after which C is closed.
type Subscriber struct {
	ID        uint64
	C         <-chan domain.NotificationEvent
	ch        chan domain.NotificationEvent
	principal *domain.Principal
	dropped   atomic.Uint64
}

// Principal is the identity resolved when the subscriber connected, or nil.
// It is informational only; delivery is never filtered by it.
func (s *Subscriber) Principal() *domain.Principal { return s.principal }

// Dropped is the number of events this subscriber missed because its buffer
// was full.
func (s *Subscriber) Dropped() uint64 { return s.dropped.Load() }

// Hub is the registry of active subscribers. Broadcast delivers every event
// to every subscriber, authenticated or not, regardless of task ownership.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscriber
	nextID uint64
	buffer int
	log    zerolog.Logger
}

// NewHub returns an empty hub. buffer is the per-subscriber channel size.
func NewHub(buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{subs: make(map[uint64]*Subscriber), buffer: buffer, log: log}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe(p *domain.Principal) *Subscriber {
	ch := make(chan domain.NotificationEvent, h.buffer)

	h.mu.Lock()
	h.nextID++
	sub := &Subscriber{ID: h.nextID, C: ch, ch: ch, principal: p}
	h.subs[sub.ID] = sub
	n := len(h.subs)
	h.mu.Unlock()

	metrics.RealtimeSubscribers.Set(float64(n))
	h.log.Debug().Uint64("subscriber_id", sub.ID).Int("subscribers", n).Msg("subscriber added")
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, sub.ID)
	close(sub.ch)
	n := len(h.subs)
	h.mu.Unlock()

	metrics.RealtimeSubscribers.Set(float64(n))
	h.log.Debug().Uint64("subscriber_id", sub.ID).Int("subscribers", n).Msg("subscriber removed")
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Stats summarises the registry.
type Stats struct {
	Subscribers   int    `json:"subscribers"`
	Authenticated int    `json:"authenticated"`
	Dropped       uint64 `json:"dropped"`
}

// Stats returns a point-in-time summary of the registry.
func (h *Hub) Stats() Stats {
	var st Stats
	for _, sub := range h.snapshot() {
		st.Subscribers++
		if sub.principal != nil {
			st.Authenticated++
		}
		st.Dropped += sub.Dropped()
	}
	return st
}

// Broadcast delivers event to a snapshot of the current subscribers. Sends
// never block: a subscriber whose buffer is full misses the event. It always
// returns nil.
func (h *Hub) Broadcast(_ context.Context, event domain.NotificationEvent) error {
	start := time.Now()
	subs := h.snapshot()

	delivered := 0
	for _, sub := range subs {
		if h.send(sub, event) {
			delivered++
		}
	}

	metrics.BroadcastDuration.Observe(time.Since(start).Seconds())
	h.log.Debug().
		Str("event", string(event.Kind)).
		Str("task_id", event.TaskID).
		Int("subscribers", len(subs)).
		Int("delivered", delivered).
		Msg("broadcast")
	return nil
}

// send holds the read lock so that Unsubscribe cannot close the channel
// mid-send.
func (h *Hub) send(sub *Subscriber, event domain.NotificationEvent) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.subs[sub.ID]; !ok {
		return false
	}
	select {
	case sub.ch <- event:
		return true
	default:
		sub.dropped.Add(1)
		metrics.NotificationsDroppedTotal.WithLabelValues("subscriber").Inc()
		return false
	}
}

func (h *Hub) snapshot() []*Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := make([]*Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	return subs
}
