package facade

import (
	"context"
	"log/slog"

	"github.com/M0hammadUsman/listingchat/internal/api/service"
	"github.com/M0hammadUsman/listingchat/internal/domain"
)

type ConversationFacade struct {
	service *service.Service
	feed    domain.ChangeFeed
}

func NewConversationFacade(srv *service.Service, feed domain.ChangeFeed) *ConversationFacade {
	return &ConversationFacade{service: srv, feed: feed}
}

// EnsureConversation announces a newly created conversation to both participants
func (f *ConversationFacade) EnsureConversation(
	ctx context.Context,
	otherID string,
	listingID *string,
) (*domain.Conversation, bool, error) {
	c, created, err := f.service.EnsureConversation(ctx, otherID, listingID)
	if err != nil {
		return nil, false, err
	}
	if created {
		if err = f.feed.Publish(ctx, domain.NewConversationEvent(c), c.Participants()...); err != nil {
			slog.Error("publishing conversation", "conversationID", c.ID, "error", err)
		}
	}
	return c, created, nil
}

func (f *ConversationFacade) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	return f.service.GetConversation(ctx, id)
}

func (f *ConversationFacade) GetConversations(
	ctx context.Context,
	filter *domain.Filter,
) ([]*domain.Conversation, *domain.Metadata, error) {
	return f.service.GetConversations(ctx, filter)
}
