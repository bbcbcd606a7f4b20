package domain

import (
	"cmp"
	"context"
	"regexp"
	"slices"
	"strings"
	"time"
)

const MaxMessageBytes = 5120

var (
	rgxUUID = regexp.MustCompile("^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$")
)

// Message is append only, the only mutation is Read going from false to true.
type Message struct {
	ID             string    `json:"id"                    db:"id"`
	ConversationID string    `json:"conversationID"        db:"conversation_id"`
	SenderID       string    `json:"senderID"              db:"sender_id"`
	RecipientID    string    `json:"recipientID"           db:"recipient_id"`
	Content        string    `json:"content"               db:"content"`
	Read           bool      `json:"read"                  db:"read"`
	ClientMsgID    *string   `json:"clientMsgID,omitempty" db:"client_msg_id"`
	CreatedAt      time.Time `json:"createdAt"             db:"created_at"`
}

// CompareMessages orders by created_at, then id so that equal timestamps still have a stable order
func CompareMessages(a, b *Message) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func SortMessages(msgs []*Message) {
	slices.SortStableFunc(msgs, CompareMessages)
}

// UnreadCounts maps conversation id to the number of unread messages addressed to a user
type UnreadCounts map[string]int

func (u UnreadCounts) Total() int {
	var total int
	for _, n := range u {
		total += n
	}
	return total
}

func (u UnreadCounts) Clone() UnreadCounts {
	c := make(UnreadCounts, len(u))
	for k, v := range u {
		if v > 0 {
			c[k] = v
		}
	}
	return c
}

// UnreadState is one consistent read of a user's unread counts. Watermarks holds per conversation the
// created_at of the newest message addressed to the user, read or not, at the time of the read.
type UnreadState struct {
	Counts     UnreadCounts         `json:"counts"`
	Watermarks map[string]time.Time `json:"watermarks"`
}

func NewUnreadState() *UnreadState {
	return &UnreadState{Counts: make(UnreadCounts), Watermarks: make(map[string]time.Time)}
}

// Observe records m, addressed to the state's user, as part of the read
func (s *UnreadState) Observe(m *Message) {
	if !m.Read {
		s.Counts[m.ConversationID]++
	}
	if w, ok := s.Watermarks[m.ConversationID]; !ok || m.CreatedAt.After(w) {
		s.Watermarks[m.ConversationID] = m.CreatedAt
	}
}

// Covers reports whether m was already stored when the state was read. Messages of a conversation are
// created in commit order, so anything at or before the conversation's watermark is reflected in Counts.
func (s *UnreadState) Covers(m *Message) bool {
	w, ok := s.Watermarks[m.ConversationID]
	return ok && !m.CreatedAt.After(w)
}

func (s *UnreadState) Clone() *UnreadState {
	c := &UnreadState{Counts: s.Counts.Clone(), Watermarks: make(map[string]time.Time, len(s.Watermarks))}
	for k, v := range s.Watermarks {
		c.Watermarks[k] = v
	}
	return c
}

type MessageService interface {
	SendMessage(ctx context.Context, conversationID string, m *MessageSend) (*Message, *Conversation, error)
	GetSentMessage(ctx context.Context, clientMsgID string) (*Message, error)
	FetchMessages(ctx context.Context, conversationID string, c *Cursor) ([]*Message, *CursorMetadata, error)
	GetUnreadCounts(ctx context.Context) (*UnreadState, error)
	MarkRead(ctx context.Context, conversationID string) ([]*Message, *Conversation, error)
	MarkMessageRead(ctx context.Context, messageID string) (*Message, *Conversation, bool, error)
}

type MessageRepository interface {
	GetByID(ctx context.Context, id string) (*Message, error)
	GetByClientMsgID(ctx context.Context, senderID, clientMsgID string) (*Message, error)
	// InsertMessage populates ID when empty, returns ErrDuplicateMessage on a client message id conflict
	InsertMessage(ctx context.Context, m *Message) error
	// GetMessages returns up to c.Limit() messages after the cursor in ascending (created_at, id) order
	GetMessages(ctx context.Context, conversationID string, c *Cursor) ([]*Message, error)
	GetUnreadCounts(ctx context.Context, usrID string) (*UnreadState, error)
	// MarkConversationRead flips every unread message of the conversation addressed to usrID and returns them
	MarkConversationRead(ctx context.Context, conversationID, usrID string) ([]*Message, error)
	// MarkMessageRead returns the message & whether it was flipped by this call
	MarkMessageRead(ctx context.Context, id, usrID string) (*Message, bool, error)
}

// UnreadCache holds a user's unread state in front of the MessageRepository
type UnreadCache interface {
	Get(ctx context.Context, usrID string) (*UnreadState, bool, error)
	Set(ctx context.Context, usrID string, state *UnreadState) error
	Invalidate(ctx context.Context, usrIDs ...string) error
}

// DTO

type MessageSend struct {
	Content     string  `json:"content"`
	ClientMsgID *string `json:"clientMsgID"`
}

func ValidateMessageContent(content string, ev *ErrValidation) {
	ev.Evaluate(len(content) <= MaxMessageBytes, "content", "must be a max of 5120 bytes (5KB) long")
}

func ValidateClientMsgID(id *string, ev *ErrValidation) {
	if id != nil {
		ev.Evaluate(rgxUUID.MatchString(*id), "clientMsgID", "must be a valid UUID")
	}
}

// IsBlank reports whether content is empty after trimming whitespace
func IsBlank(content string) bool {
	return strings.TrimSpace(content) == ""
}

func IsUUID(s string) bool {
	return rgxUUID.MatchString(s)
}
