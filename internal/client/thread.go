package client

import (
	gosync "sync"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

// Thread is the displayed message list of one conversation. It is ordered by (created_at, id) whatever
// the arrival order and holds each message id once.
type Thread struct {
	conversationID string
	mu             gosync.RWMutex
	msgs           []*domain.Message
	byID           map[string]*domain.Message
	// position of the last fetched page, events do not move it so that a gap is still fetched
	cursor string
}

func NewThread(conversationID string) *Thread {
	return &Thread{
		conversationID: conversationID,
		byID:           make(map[string]*domain.Message),
	}
}

func (t *Thread) ConversationID() string {
	return t.conversationID
}

// Merge adds the messages not present yet and returns them, a known message only has its read flag
// carried over.
func (t *Thread) Merge(msgs ...*domain.Message) []*domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	var added []*domain.Message
	for _, m := range msgs {
		if m == nil || m.ConversationID != t.conversationID {
			continue
		}
		if existing, ok := t.byID[m.ID]; ok {
			if m.Read {
				existing.Read = true
			}
			continue
		}
		c := *m
		t.byID[m.ID] = &c
		t.msgs = append(t.msgs, &c)
		added = append(added, m)
	}
	if len(added) > 0 {
		domain.SortMessages(t.msgs)
	}
	return added
}

func (t *Thread) SetRead(msgID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.byID[msgID]
	if !ok || m.Read {
		return false
	}
	m.Read = true
	return true
}

// Messages returns a copy of the thread in display order
func (t *Thread) Messages() []*domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*domain.Message, len(t.msgs))
	for i, m := range t.msgs {
		c := *m
		out[i] = &c
	}
	return out
}

func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}

func (t *Thread) Cursor() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor
}

func (t *Thread) advance(cursor string) {
	if cursor == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursor = cursor
}
