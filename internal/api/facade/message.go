package facade

import (
	"context"
	"errors"
	"log/slog"

	"github.com/M0hammadUsman/listingchat/internal/api/mailer"
	"github.com/M0hammadUsman/listingchat/internal/api/service"
	"github.com/M0hammadUsman/listingchat/internal/common"
	"github.com/M0hammadUsman/listingchat/internal/domain"
)

const previewRunes = 140

type MessageFacade struct {
	service     *service.Service
	txManager   TXManager
	feed        domain.ChangeFeed
	unreadCache domain.UnreadCache
	notifier    Notifier
	bgTask      *common.BackgroundTask
}

// NewMessageFacade accepts a nil notifier, offline recipients are then not notified
func NewMessageFacade(
	service *service.Service,
	txMan TXManager,
	feed domain.ChangeFeed,
	unreadCache domain.UnreadCache,
	notifier Notifier,
	bgTask *common.BackgroundTask,
) *MessageFacade {
	return &MessageFacade{
		service:     service,
		txManager:   txMan,
		feed:        feed,
		unreadCache: unreadCache,
		notifier:    notifier,
		bgTask:      bgTask,
	}
}

// SendMessage stores the message & fans it out. created is false when the clientMsgID was already
// stored, the original message is returned and nothing is published again.
func (f *MessageFacade) SendMessage(
	ctx context.Context,
	conversationID string,
	m *domain.MessageSend,
) (*domain.Message, bool, error) {
	var msg *domain.Message
	var convo *domain.Conversation
	err := f.txManager.RunInTX(ctx, func(ctx context.Context) error {
		var err error
		msg, convo, err = f.service.SendMessage(ctx, conversationID, m)
		return err
	})
	if errors.Is(err, domain.ErrDuplicateMessage) && m.ClientMsgID != nil {
		msg, err = f.service.GetSentMessage(ctx, *m.ClientMsgID)
		return msg, false, err
	}
	if err != nil {
		return nil, false, err
	}
	f.invalidateUnread(ctx, msg.RecipientID)
	f.publish(ctx, domain.NewMessageEvent(domain.MessageInserted, msg), convo.Participants()...)
	f.publish(ctx, domain.NewConversationEvent(convo), convo.Participants()...)
	f.notifyIfOffline(common.ContextGetUser(ctx), convo, msg)
	return msg, true, nil
}

func (f *MessageFacade) FetchMessages(
	ctx context.Context,
	conversationID string,
	c *domain.Cursor,
) ([]*domain.Message, *domain.CursorMetadata, error) {
	return f.service.FetchMessages(ctx, conversationID, c)
}

func (f *MessageFacade) GetUnreadCounts(ctx context.Context) (*domain.UnreadState, error) {
	return f.service.GetUnreadCounts(ctx)
}

// MarkRead returns the messages flipped by this call, each of them is published as an update
func (f *MessageFacade) MarkRead(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	msgs, convo, err := f.service.MarkRead(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return msgs, nil
	}
	f.invalidateUnread(ctx, common.ContextGetUser(ctx).ID)
	for _, m := range msgs {
		f.publish(ctx, domain.NewMessageEvent(domain.MessageUpdated, m), convo.Participants()...)
	}
	return msgs, nil
}

func (f *MessageFacade) MarkMessageRead(ctx context.Context, messageID string) (*domain.Message, error) {
	m, convo, flipped, err := f.service.MarkMessageRead(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if flipped {
		f.invalidateUnread(ctx, m.RecipientID)
		f.publish(ctx, domain.NewMessageEvent(domain.MessageUpdated, m), convo.Participants()...)
	}
	return m, nil
}

// Helpers & Stuff ----------------------------------------------------------------------------------------------------

func (f *MessageFacade) publish(ctx context.Context, ev *domain.ChangeEvent, usrIDs ...string) {
	if err := f.feed.Publish(ctx, ev, usrIDs...); err != nil {
		slog.Error("publishing change event", "kind", ev.Kind, "conversationID", ev.ConversationID(), "error", err)
	}
}

func (f *MessageFacade) invalidateUnread(ctx context.Context, usrIDs ...string) {
	if err := f.unreadCache.Invalidate(ctx, usrIDs...); err != nil {
		slog.Warn("unread cache invalidation failed", "error", err)
	}
}

func (f *MessageFacade) notifyIfOffline(sender *domain.User, convo *domain.Conversation, msg *domain.Message) {
	if f.notifier == nil {
		return
	}
	f.bgTask.Run("notify offline recipient", func(shtdwnCtx context.Context) {
		recipient, err := f.service.GetByUniqueField(shtdwnCtx, msg.RecipientID)
		if err != nil {
			slog.Error(err.Error())
			return
		}
		if recipient.Online() {
			return
		}
		preview := msg.Content
		if r := []rune(preview); len(r) > previewRunes {
			preview = string(r[:previewRunes]) + "…"
		}
		data := map[string]any{
			"name":       recipient.Name,
			"senderName": sender.Name,
			"preview":    preview,
		}
		if convo.ListingID != nil {
			data["listingID"] = *convo.ListingID
		}
		if err = f.notifier.Send(recipient.Email, mailer.NewMessageTemplate, data); err != nil {
			slog.Error(err.Error())
		}
	})
}
