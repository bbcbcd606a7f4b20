package client

import (
	"context"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

// Datastore is the session's view of the API, every method is attributed to the logged-in user.
// Failed round-trips are reported as domain.ErrTransientNetwork.
type Datastore interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
	EnsureConversation(ctx context.Context, otherID string, listingID *string) (*domain.Conversation, bool, error)
	GetConversations(ctx context.Context, f *domain.Filter) ([]*domain.Conversation, *domain.Metadata, error)
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	SendMessage(ctx context.Context, conversationID string, m *domain.MessageSend) (*domain.Message, error)
	// FetchMessages returns the page after the opaque cursor, "" starts from the oldest message
	FetchMessages(ctx context.Context, conversationID, after string, size int) ([]*domain.Message, *domain.CursorMetadata, error)
	GetUnreadCounts(ctx context.Context) (*domain.UnreadState, error)
	MarkRead(ctx context.Context, conversationID string) ([]*domain.Message, error)
	MarkMessageRead(ctx context.Context, messageID string) (*domain.Message, error)
}

// Feed opens the realtime change stream, the returned chan is closed once the stream drops
type Feed interface {
	Subscribe(ctx context.Context) (<-chan *domain.ChangeEvent, error)
}

// LocalCache keeps what the session has seen so that it can be shown while the API is unreachable,
// satisfied by *repository.LocalRepository
type LocalCache interface {
	SaveConversations(ctx context.Context, convos ...*domain.Conversation) error
	GetConversations(ctx context.Context) ([]*domain.Conversation, error)
	SaveMsgs(ctx context.Context, msgs ...*domain.Message) error
	GetMsgs(ctx context.Context, conversationID string) ([]*domain.Message, error)
}
