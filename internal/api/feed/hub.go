package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

var _ domain.ChangeFeed = (*Hub)(nil)

const subscriberBuffer = 16

// subscriber is one live stream of a user; a user may hold several, one per open session.
type subscriber struct {
	events    chan *domain.ChangeEvent
	closeOnce sync.Once
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() { close(s.events) })
}

// deliver never blocks, a subscriber too slow to keep up is dropped and has to resubscribe
func (s *subscriber) deliver(ev *domain.ChangeEvent) bool {
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

// Hub is the in-process ChangeFeed, used when the API runs as a single instance.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[*subscriber]struct{} // keys are userID
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[*subscriber]struct{})}
}

func (h *Hub) Publish(_ context.Context, ev *domain.ChangeEvent, usrIDs ...string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range dedupIDs(usrIDs) {
		for sub := range h.subscribers[id] {
			if !sub.deliver(ev) {
				slog.Warn("dropping slow feed subscriber", "userID", id)
				h.removeLocked(id, sub)
			}
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, usrID string) (<-chan *domain.ChangeEvent, func(), error) {
	sub := &subscriber{events: make(chan *domain.ChangeEvent, subscriberBuffer)}
	h.mu.Lock()
	if h.subscribers[usrID] == nil {
		h.subscribers[usrID] = make(map[*subscriber]struct{})
	}
	h.subscribers[usrID][sub] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			h.removeLocked(usrID, sub)
			h.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, unsubscribe)
	return sub.events, func() {
		stop()
		unsubscribe()
	}, nil
}

// Subscribers returns the number of live streams of usrID
func (h *Hub) Subscribers(usrID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[usrID])
}

func (h *Hub) removeLocked(usrID string, sub *subscriber) {
	subs, ok := h.subscribers[usrID]
	if !ok {
		return
	}
	if _, ok = subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscribers, usrID)
	}
	sub.close()
}

func dedupIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
