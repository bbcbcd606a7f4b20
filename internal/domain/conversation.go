package domain

import (
	"context"
	"strings"
	"time"
)

// Conversation is the unique thread between two users, optionally scoped to a listing. Participants are
// stored normalized, ParticipantAID < ParticipantBID.
type Conversation struct {
	ID             string    `json:"id"             db:"id"`
	ParticipantAID string    `json:"participantAID" db:"participant_a_id"`
	ParticipantBID string    `json:"participantBID" db:"participant_b_id"`
	ListingID      *string   `json:"listingID"      db:"listing_id"`
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt"      db:"updated_at"`
	// per-caller view, only populated when listing conversations
	LastMessage *string `json:"lastMessage,omitempty" db:"last_message"`
	UnreadCount int     `json:"unreadCount"           db:"unread_count"`
}

func (c *Conversation) HasParticipant(usrID string) bool {
	return usrID != "" && (c.ParticipantAID == usrID || c.ParticipantBID == usrID)
}

// Other returns the participant that is not usrID, false if usrID does not take part in c.
func (c *Conversation) Other(usrID string) (string, bool) {
	switch usrID {
	case c.ParticipantAID:
		return c.ParticipantBID, true
	case c.ParticipantBID:
		return c.ParticipantAID, true
	}
	return "", false
}

// Participants returns both participant ids
func (c *Conversation) Participants() []string {
	return []string{c.ParticipantAID, c.ParticipantBID}
}

func (c *Conversation) SameListing(listingID *string) bool {
	return NormalizeListingID(c.ListingID) == NormalizeListingID(listingID)
}

// NormalizePair orders the two user ids so that the pair can be looked up regardless of direction.
func NormalizePair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// NormalizeListingID maps "no listing" (nil or blank) to nil and trims the rest.
func NormalizeListingID(listingID *string) *string {
	if listingID == nil {
		return nil
	}
	l := strings.TrimSpace(*listingID)
	if l == "" {
		return nil
	}
	return &l
}

// ConversationKey is the order independent identity of a conversation, as enforced by the datastore's
// unique index.
func ConversationKey(a, b string, listingID *string) string {
	a, b = NormalizePair(a, b)
	var l string
	if listingID = NormalizeListingID(listingID); listingID != nil {
		l = *listingID
	}
	return a + "|" + b + "|" + l
}

type ConversationService interface {
	EnsureConversation(ctx context.Context, otherID string, listingID *string) (*Conversation, bool, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	GetConversations(ctx context.Context, f *Filter) ([]*Conversation, *Metadata, error)
}

type ConversationRepository interface {
	// FindConversation returns ErrRecordNotFound when no conversation exists for the pair & listing
	FindConversation(ctx context.Context, a, b string, listingID *string) (*Conversation, error)
	// InsertConversation populates ID, CreatedAt & UpdatedAt, returns ErrDuplicateConversation on conflict
	InsertConversation(ctx context.Context, c *Conversation) error
	GetConversationByID(ctx context.Context, id string) (*Conversation, error)
	GetConversations(ctx context.Context, usrID string, f *Filter) ([]*Conversation, *Metadata, error)
	// TouchConversation bumps updated_at to a value strictly after the previous one and returns it
	TouchConversation(ctx context.Context, id string) (time.Time, error)
}

// DTOs

type ConversationEnsure struct {
	OtherID   string  `json:"otherID"`
	ListingID *string `json:"listingID"`
}
