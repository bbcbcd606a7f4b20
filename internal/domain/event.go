package domain

import (
	"context"
	"strconv"
	"time"
)

type EventKind string

const (
	MessageInserted     EventKind = "message.insert"
	MessageUpdated      EventKind = "message.update"
	ConversationUpdated EventKind = "conversation.update"
)

// ChangeEvent carries the full new row of a change on the messages or conversations collection.
// Delivery is at-least-once, consumers deduplicate with Key.
type ChangeEvent struct {
	Kind         EventKind     `json:"kind"`
	Message      *Message      `json:"message,omitempty"`
	Conversation *Conversation `json:"conversation,omitempty"`
	At           time.Time     `json:"at"`
}

func NewMessageEvent(kind EventKind, m *Message) *ChangeEvent {
	return &ChangeEvent{Kind: kind, Message: m, At: time.Now()}
}

func NewConversationEvent(c *Conversation) *ChangeEvent {
	return &ChangeEvent{Kind: ConversationUpdated, Conversation: c, At: time.Now()}
}

// ConversationID of the row the event is about
func (e *ChangeEvent) ConversationID() string {
	switch {
	case e.Message != nil:
		return e.Message.ConversationID
	case e.Conversation != nil:
		return e.Conversation.ID
	}
	return ""
}

// Key identifies the state an event carries; two events with the same key are replays of each other.
func (e *ChangeEvent) Key() string {
	switch {
	case e.Message != nil:
		return string(e.Kind) + ":" + e.Message.ID + ":" + strconv.FormatBool(e.Message.Read)
	case e.Conversation != nil:
		return string(e.Kind) + ":" + e.Conversation.ID + ":" + strconv.FormatInt(e.Conversation.UpdatedAt.UnixNano(), 10)
	}
	return string(e.Kind)
}

func (e *ChangeEvent) Valid() bool {
	switch e.Kind {
	case MessageInserted, MessageUpdated:
		return e.Message != nil && e.Message.ID != ""
	case ConversationUpdated:
		return e.Conversation != nil && e.Conversation.ID != ""
	}
	return false
}

// ChangeFeed fans change events out to the users they concern
type ChangeFeed interface {
	Publish(ctx context.Context, ev *ChangeEvent, usrIDs ...string) error
	// Subscribe returns the stream of events for usrID, the returned func must be called to release it
	Subscribe(ctx context.Context, usrID string) (<-chan *ChangeEvent, func(), error)
}
