package client

import (
	"context"
	"log/slog"
	gosync "sync"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/M0hammadUsman/listingchat/internal/sync"
)

// UnreadSnapshot is what the UI shows, the active conversation is never part of Counts
type UnreadSnapshot struct {
	Counts domain.UnreadCounts
	Total  int
}

// UnreadTracker keeps the raw unread counts of the session user and derives the displayed ones by
// suppressing the active conversation. The raw counts are never mutated by suppression.
type UnreadTracker struct {
	store     Datastore
	active    *ActiveConversation
	mu        gosync.Mutex
	raw       domain.UnreadCounts
	fetched   *domain.UnreadState        // messages it covers are never counted again
	counted   map[string]*domain.Message // bumped locally and not covered by a fetch yet
	snapshots *sync.Broadcaster[UnreadSnapshot]
}

func NewUnreadTracker(store Datastore, active *ActiveConversation) *UnreadTracker {
	return &UnreadTracker{
		store:     store,
		active:    active,
		raw:       make(domain.UnreadCounts),
		fetched:   domain.NewUnreadState(),
		counted:   make(map[string]*domain.Message),
		snapshots: sync.NewBroadcaster(UnreadSnapshot{Counts: make(domain.UnreadCounts)}),
	}
}

// GetUnreadCounts fetches the raw counts and returns them with the active conversation suppressed
func (t *UnreadTracker) GetUnreadCounts(ctx context.Context) (UnreadSnapshot, error) {
	state, err := t.store.GetUnreadCounts(ctx)
	if err != nil {
		return t.Snapshot(), err
	}
	t.mu.Lock()
	t.fetched = state
	t.raw = state.Counts.Clone()
	// live messages stored after the read keep their local bump
	for id, m := range t.counted {
		if state.Covers(m) {
			delete(t.counted, id)
			continue
		}
		t.raw[m.ConversationID]++
	}
	t.mu.Unlock()
	return t.publish(), nil
}

// MarkRead stores every message of the conversation addressed to the user as read, then recomputes
func (t *UnreadTracker) MarkRead(ctx context.Context, conversationID string) error {
	if _, err := t.store.MarkRead(ctx, conversationID); err != nil {
		return err
	}
	t.mu.Lock()
	delete(t.raw, conversationID)
	t.mu.Unlock()
	if _, err := t.GetUnreadCounts(ctx); err != nil {
		slog.Warn("recomputing unread counts", "error", err)
		t.publish()
	}
	return nil
}

// Increment bumps the count of a conversation for a message delivered live. Messages of the active
// conversation, messages the last fetch already counted and messages bumped before are ignored.
func (t *UnreadTracker) Increment(m *domain.Message) bool {
	if t.active.Is(m.ConversationID) {
		return false
	}
	t.mu.Lock()
	if _, ok := t.counted[m.ID]; ok || t.fetched.Covers(m) {
		t.mu.Unlock()
		return false
	}
	t.counted[m.ID] = m
	t.raw[m.ConversationID]++
	t.mu.Unlock()
	t.publish()
	return true
}

// Snapshot returns the current counts without a round-trip
func (t *UnreadTracker) Snapshot() UnreadSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := t.raw.Clone()
	delete(counts, t.active.Get())
	return UnreadSnapshot{Counts: counts, Total: counts.Total()}
}

func (t *UnreadTracker) Subscribe() (int, <-chan UnreadSnapshot) {
	return t.snapshots.Subscribe()
}

func (t *UnreadTracker) Unsubscribe(token int) {
	t.snapshots.Unsubscribe(token)
}

func (t *UnreadTracker) publish() UnreadSnapshot {
	s := t.Snapshot()
	t.snapshots.Write(s)
	return s
}
