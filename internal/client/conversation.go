package client

import (
	"cmp"
	"slices"
	gosync "sync"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/M0hammadUsman/listingchat/internal/sync"
)

type Convos []*domain.Conversation

// ConversationList is the session's conversation list, most recent activity first
type ConversationList struct {
	mu      gosync.Mutex
	convos  map[string]*domain.Conversation
	updates *sync.Broadcaster[Convos]
}

func NewConversationList() *ConversationList {
	return &ConversationList{
		convos:  make(map[string]*domain.Conversation),
		updates: sync.NewBroadcaster(Convos{}),
	}
}

// Replace swaps the whole list for a freshly fetched one
func (l *ConversationList) Replace(convos Convos) {
	l.mu.Lock()
	next := make(map[string]*domain.Conversation, len(convos))
	for _, c := range convos {
		cp := *c
		if cp.LastMessage == nil {
			if old, ok := l.convos[c.ID]; ok {
				cp.LastMessage = old.LastMessage
			}
		}
		next[c.ID] = &cp
	}
	l.convos = next
	l.mu.Unlock()
	l.publish()
}

// Upsert inserts or updates one conversation. The locally known preview & unread count survive an update
// that does not carry them.
func (l *ConversationList) Upsert(c *domain.Conversation) {
	l.mu.Lock()
	cp := *c
	if old, ok := l.convos[c.ID]; ok {
		if cp.LastMessage == nil {
			cp.LastMessage = old.LastMessage
		}
		cp.UnreadCount = old.UnreadCount
		if old.UpdatedAt.After(cp.UpdatedAt) {
			cp.UpdatedAt = old.UpdatedAt
		}
	}
	l.convos[c.ID] = &cp
	l.mu.Unlock()
	l.publish()
}

// BumpFromMessage moves the message's conversation to the top with m as its preview, false when the
// conversation is not in the list.
func (l *ConversationList) BumpFromMessage(m *domain.Message) bool {
	l.mu.Lock()
	c, ok := l.convos[m.ConversationID]
	if !ok {
		l.mu.Unlock()
		return false
	}
	if !m.CreatedAt.Before(c.UpdatedAt) {
		preview := m.Content
		c.LastMessage = &preview
		c.UpdatedAt = m.CreatedAt
	}
	l.mu.Unlock()
	l.publish()
	return true
}

// ApplyUnread sets every entry's unread count from counts, absent means zero
func (l *ConversationList) ApplyUnread(counts domain.UnreadCounts) {
	l.mu.Lock()
	for id, c := range l.convos {
		c.UnreadCount = counts[id]
	}
	l.mu.Unlock()
	l.publish()
}

func (l *ConversationList) Get(id string) (*domain.Conversation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.convos[id]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

// Sorted returns a copy ordered by updated_at descending
func (l *ConversationList) Sorted() Convos {
	l.mu.Lock()
	out := make(Convos, 0, len(l.convos))
	for _, c := range l.convos {
		cp := *c
		out = append(out, &cp)
	}
	l.mu.Unlock()
	slices.SortFunc(out, func(a, b *domain.Conversation) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (l *ConversationList) Subscribe() (int, <-chan Convos) {
	return l.updates.Subscribe()
}

func (l *ConversationList) Unsubscribe(token int) {
	l.updates.Unsubscribe(token)
}

func (l *ConversationList) publish() {
	l.updates.Write(l.Sorted())
}
