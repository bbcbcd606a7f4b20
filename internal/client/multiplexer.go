package client

import (
	"context"
	gosync "sync"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

const defaultSeenLimit = 4096

type EventHandler func(ctx context.Context, ev *domain.ChangeEvent)

type route struct {
	id             int
	kind           domain.EventKind
	conversationID string // "" matches every conversation
	fn             EventHandler
}

// Multiplexer fans the session's single change stream out to handlers registered by event kind and
// conversation. An event whose key was already dispatched is dropped here, handlers never see replays.
type Multiplexer struct {
	mu     gosync.Mutex
	routes []route
	nextID int
	seen   map[string]struct{}
	order  []string
	limit  int
}

func NewMultiplexer() *Multiplexer {
	return &Multiplexer{
		seen:  make(map[string]struct{}),
		limit: defaultSeenLimit,
	}
}

// Handle registers fn, the returned func removes it
func (mx *Multiplexer) Handle(kind domain.EventKind, conversationID string, fn EventHandler) func() {
	mx.mu.Lock()
	defer mx.mu.Unlock()
	id := mx.nextID
	mx.nextID++
	mx.routes = append(mx.routes, route{id: id, kind: kind, conversationID: conversationID, fn: fn})
	return func() {
		mx.mu.Lock()
		defer mx.mu.Unlock()
		for i, r := range mx.routes {
			if r.id == id {
				mx.routes = append(mx.routes[:i], mx.routes[i+1:]...)
				return
			}
		}
	}
}

// Dispatch runs the matching handlers in registration order, false if ev was malformed or a replay
func (mx *Multiplexer) Dispatch(ctx context.Context, ev *domain.ChangeEvent) bool {
	if ev == nil || !ev.Valid() {
		return false
	}
	key := ev.Key()
	convID := ev.ConversationID()
	mx.mu.Lock()
	if _, ok := mx.seen[key]; ok {
		mx.mu.Unlock()
		return false
	}
	mx.seen[key] = struct{}{}
	mx.order = append(mx.order, key)
	if len(mx.order) > mx.limit {
		delete(mx.seen, mx.order[0])
		mx.order = mx.order[1:]
	}
	var fns []EventHandler
	for _, r := range mx.routes {
		if r.kind == ev.Kind && (r.conversationID == "" || r.conversationID == convID) {
			fns = append(fns, r.fn)
		}
	}
	mx.mu.Unlock()
	for _, fn := range fns {
		fn(ctx, ev)
	}
	return true
}
