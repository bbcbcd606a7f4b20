package client

import (
	"context"
	"log/slog"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/google/uuid"
)

// Send posts into conversationID. A nil ClientMsgID is filled in, sending the same *domain.MessageSend
// again after a failure can therefore never store the message twice.
func (s *Session) Send(ctx context.Context, conversationID string, in *domain.MessageSend) (*domain.Message, error) {
	if domain.IsBlank(in.Content) {
		return nil, domain.ErrEmptyMessage
	}
	if in.ClientMsgID == nil {
		id := uuid.NewString()
		in.ClientMsgID = &id
	}
	m, err := s.store.SendMessage(ctx, conversationID, in)
	if err != nil {
		return nil, err
	}
	if th := s.Thread(); th != nil {
		th.Merge(m)
	}
	s.Conversations.BumpFromMessage(m)
	s.cacheMsgs(ctx, m)
	return m, nil
}

// CatchUp fetches the messages of the active conversation after the last fetched page
func (s *Session) CatchUp(ctx context.Context) error {
	th := s.Thread()
	if th == nil {
		return nil
	}
	for {
		msgs, md, err := s.store.FetchMessages(ctx, th.ConversationID(), th.Cursor(), domain.MaxCursorSize)
		if err != nil {
			return err
		}
		s.cacheMsgs(ctx, msgs...)
		for _, m := range th.Merge(msgs...) {
			s.readWhileActive(ctx, th, m)
		}
		th.advance(md.NextCursor)
		if !md.HasMore {
			return nil
		}
	}
}

// readWhileActive stores m as read because the user is looking at it
func (s *Session) readWhileActive(ctx context.Context, th *Thread, m *domain.Message) {
	if m.Read || m.RecipientID != s.user.ID {
		return
	}
	if !s.active.addPending(m.ConversationID, m.ID) {
		return
	}
	if _, err := s.store.MarkMessageRead(ctx, m.ID); err != nil {
		slog.Warn("marking message read", "messageID", m.ID, "error", err)
		return
	}
	s.active.resolve(m.ID)
	th.SetRead(m.ID)
}

func (s *Session) loadThreadFromCache(ctx context.Context, conversationID string) {
	if s.cache == nil {
		return
	}
	th := s.Thread()
	if th == nil || th.ConversationID() != conversationID {
		return
	}
	msgs, err := s.cache.GetMsgs(ctx, conversationID)
	if err != nil {
		slog.Error(err.Error())
		return
	}
	th.Merge(msgs...)
}

// Event handlers, registered on the Multiplexer by the Listener ------------------------------------------------------

func (s *Session) onMessageInserted(ctx context.Context, ev *domain.ChangeEvent) {
	m := ev.Message
	if m.SenderID != s.user.ID && m.RecipientID != s.user.ID {
		return
	}
	s.cacheMsgs(ctx, m)
	if !s.Conversations.BumpFromMessage(m) {
		// first message of a conversation this session has not seen yet
		if c, err := s.store.GetConversation(ctx, m.ConversationID); err == nil {
			preview := m.Content
			c.LastMessage = &preview
			s.Conversations.Upsert(c)
			s.cacheConvos(ctx, c)
		}
	}
	if th := s.Thread(); th != nil && th.ConversationID() == m.ConversationID && s.active.Is(m.ConversationID) {
		for _, added := range th.Merge(m) {
			s.readWhileActive(ctx, th, added)
		}
		return
	}
	if m.RecipientID == s.user.ID && !m.Read && s.Unread.Increment(m) {
		s.Conversations.ApplyUnread(s.Unread.Snapshot().Counts)
	}
}

func (s *Session) onMessageUpdated(ctx context.Context, ev *domain.ChangeEvent) {
	m := ev.Message
	if m.SenderID != s.user.ID && m.RecipientID != s.user.ID {
		return
	}
	s.cacheMsgs(ctx, m)
	if th := s.Thread(); th != nil {
		th.Merge(m)
	}
	if m.RecipientID != s.user.ID {
		return
	}
	if _, err := s.Unread.GetUnreadCounts(ctx); err != nil {
		slog.Warn("refreshing unread counts", "error", err)
		return
	}
	s.Conversations.ApplyUnread(s.Unread.Snapshot().Counts)
}

func (s *Session) onConversationUpdated(ctx context.Context, ev *domain.ChangeEvent) {
	c := ev.Conversation
	if !c.HasParticipant(s.user.ID) {
		return
	}
	s.Conversations.Upsert(c)
	s.cacheConvos(ctx, c)
}
