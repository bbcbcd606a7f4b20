package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/M0hammadUsman/listingchat/internal/common"
	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/google/uuid"
)

var _ domain.MessageService = (*MessageService)(nil)

type MessageService struct {
	messageRepo domain.MessageRepository
	convoRepo   domain.ConversationRepository
	unreadCache domain.UnreadCache
}

func NewMessageService(
	messageRepo domain.MessageRepository,
	convoRepo domain.ConversationRepository,
	unreadCache domain.UnreadCache,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		convoRepo:   convoRepo,
		unreadCache: unreadCache,
	}
}

// SendMessage appends a message from the caller to the other participant & bumps the conversation.
// It must run inside a transaction. A clientMsgID that was already stored yields domain.ErrDuplicateMessage,
// the stored message is then available through GetSentMessage.
func (s *MessageService) SendMessage(
	ctx context.Context,
	conversationID string,
	m *domain.MessageSend,
) (*domain.Message, *domain.Conversation, error) {
	usr, err := common.ContextRequireUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	if domain.IsBlank(m.Content) {
		return nil, nil, domain.ErrEmptyMessage
	}
	ev := domain.NewErrValidation()
	domain.ValidateMessageContent(m.Content, ev)
	domain.ValidateClientMsgID(m.ClientMsgID, ev)
	if ev.HasErrors() {
		return nil, nil, ev
	}
	c, err := participantConversation(ctx, s.convoRepo, conversationID, usr.ID)
	if err != nil {
		return nil, nil, err
	}
	if m.ClientMsgID != nil {
		_, err = s.messageRepo.GetByClientMsgID(ctx, usr.ID, *m.ClientMsgID)
		if err == nil {
			return nil, nil, domain.ErrDuplicateMessage
		}
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return nil, nil, err
		}
	}
	recipientID, _ := c.Other(usr.ID)
	// created_at is taken from the conversation bump so it is strictly increasing per conversation
	ts, err := s.convoRepo.TouchConversation(ctx, c.ID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, nil, domain.ErrConversationNotFound
		}
		return nil, nil, err
	}
	msg := &domain.Message{
		ConversationID: c.ID,
		SenderID:       usr.ID,
		RecipientID:    recipientID,
		Content:        m.Content,
		ClientMsgID:    m.ClientMsgID,
		CreatedAt:      ts,
	}
	if err = s.messageRepo.InsertMessage(ctx, msg); err != nil {
		return nil, nil, err
	}
	c.UpdatedAt = ts
	preview := msg.Content
	c.LastMessage = &preview
	return msg, c, nil
}

func (s *MessageService) GetSentMessage(ctx context.Context, clientMsgID string) (*domain.Message, error) {
	usr, err := common.ContextRequireUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.messageRepo.GetByClientMsgID(ctx, usr.ID, clientMsgID)
}

// FetchMessages pages through a conversation's history in ascending (created_at, id) order
func (s *MessageService) FetchMessages(
	ctx context.Context,
	conversationID string,
	c *domain.Cursor,
) ([]*domain.Message, *domain.CursorMetadata, error) {
	usr, err := common.ContextRequireUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		c = new(domain.Cursor)
	}
	ev := domain.NewErrValidation()
	if domain.ValidateCursor(ev, c); ev.HasErrors() {
		return nil, nil, ev
	}
	if _, err = participantConversation(ctx, s.convoRepo, conversationID, usr.ID); err != nil {
		return nil, nil, err
	}
	limit := c.Limit()
	probe := *c
	probe.Size = limit + 1 // one extra row tells whether there is a next page
	msgs, err := s.messageRepo.GetMessages(ctx, conversationID, &probe)
	if err != nil {
		return nil, nil, err
	}
	page, md := domain.PageMessages(msgs, limit)
	return page, md, nil
}

// GetUnreadCounts returns the caller's unread state, conversations without unread messages are absent
// from its counts.
func (s *MessageService) GetUnreadCounts(ctx context.Context) (*domain.UnreadState, error) {
	usr, err := common.ContextRequireUser(ctx)
	if err != nil {
		return nil, err
	}
	state, hit, err := s.unreadCache.Get(ctx, usr.ID)
	if err != nil {
		slog.Warn("unread cache read failed", "userID", usr.ID, "error", err)
	}
	if hit {
		return state, nil
	}
	state, err = s.messageRepo.GetUnreadCounts(ctx, usr.ID)
	if err != nil {
		return nil, err
	}
	if err = s.unreadCache.Set(ctx, usr.ID, state); err != nil {
		slog.Warn("unread cache write failed", "userID", usr.ID, "error", err)
	}
	return state.Clone(), nil
}

// MarkRead flips every unread message of the conversation addressed to the caller, it is idempotent
// and returns only the messages this call flipped.
func (s *MessageService) MarkRead(
	ctx context.Context,
	conversationID string,
) ([]*domain.Message, *domain.Conversation, error) {
	usr, err := common.ContextRequireUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	c, err := participantConversation(ctx, s.convoRepo, conversationID, usr.ID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messageRepo.MarkConversationRead(ctx, c.ID, usr.ID)
	if err != nil {
		return nil, nil, err
	}
	return msgs, c, nil
}

// MarkMessageRead flips a single message addressed to the caller, flipped is false when it was already
// read or the caller is its sender.
func (s *MessageService) MarkMessageRead(
	ctx context.Context,
	messageID string,
) (*domain.Message, *domain.Conversation, bool, error) {
	usr, err := common.ContextRequireUser(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	if uuid.Validate(messageID) != nil {
		return nil, nil, false, domain.ErrRecordNotFound
	}
	m, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, nil, false, err
	}
	c, err := participantConversation(ctx, s.convoRepo, m.ConversationID, usr.ID)
	if err != nil {
		return nil, nil, false, err
	}
	if m.RecipientID != usr.ID || m.Read {
		return m, c, false, nil
	}
	m, flipped, err := s.messageRepo.MarkMessageRead(ctx, messageID, usr.ID)
	if err != nil {
		return nil, nil, false, err
	}
	return m, c, flipped, nil
}
