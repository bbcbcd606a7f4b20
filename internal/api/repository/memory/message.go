package memory

import (
	"context"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/google/uuid"
)

var _ domain.MessageRepository = (*MessageRepository)(nil)

type message = domain.Message

type MessageRepository struct {
	s *Store
}

func NewMessageRepository(s *Store) *MessageRepository {
	return &MessageRepository{s: s}
}

func (r *MessageRepository) GetByID(_ context.Context, id string) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.data.msgs[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &m, nil
}

func (r *MessageRepository) GetByClientMsgID(_ context.Context, senderID, clientMsgID string) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.data.clientID[senderID+"|"+clientMsgID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	m := r.s.data.msgs[id]
	return &m, nil
}

func (r *MessageRepository) InsertMessage(ctx context.Context, m *domain.Message) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.data.convos[m.ConversationID]; !ok {
		return domain.ErrRecordNotFound
	}
	var key string
	if m.ClientMsgID != nil {
		key = m.SenderID + "|" + *m.ClientMsgID
		if _, dup := r.s.data.clientID[key]; dup {
			return domain.ErrDuplicateMessage
		}
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.s.now()
	}
	m.Read = false
	r.s.data.msgs[m.ID] = *m
	r.s.data.byConv[m.ConversationID] = append(r.s.data.byConv[m.ConversationID], m.ID)
	if key != "" {
		r.s.data.clientID[key] = m.ID
	}
	return nil
}

func (r *MessageRepository) GetMessages(
	_ context.Context,
	conversationID string,
	c *domain.Cursor,
) ([]*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	msgs := make([]*domain.Message, 0)
	for _, id := range r.s.data.byConv[conversationID] {
		m := r.s.data.msgs[id]
		if !c.After(&m) {
			continue
		}
		msgs = append(msgs, &m)
	}
	domain.SortMessages(msgs)
	if len(msgs) > c.Limit() {
		msgs = msgs[:c.Limit()]
	}
	return msgs, nil
}

func (r *MessageRepository) GetUnreadCounts(_ context.Context, usrID string) (*domain.UnreadState, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	state := domain.NewUnreadState()
	for _, m := range r.s.data.msgs {
		if m.RecipientID == usrID {
			state.Observe(&m)
		}
	}
	return state, nil
}

func (r *MessageRepository) MarkConversationRead(
	ctx context.Context,
	conversationID, usrID string,
) ([]*domain.Message, error) {
	defer r.s.lock(ctx)()
	updated := make([]*domain.Message, 0)
	for _, id := range r.s.data.byConv[conversationID] {
		m := r.s.data.msgs[id]
		if m.RecipientID != usrID || m.Read {
			continue
		}
		m.Read = true
		r.s.data.msgs[id] = m
		updated = append(updated, &m)
	}
	domain.SortMessages(updated)
	return updated, nil
}

func (r *MessageRepository) MarkMessageRead(ctx context.Context, id, usrID string) (*domain.Message, bool, error) {
	defer r.s.lock(ctx)()
	m, ok := r.s.data.msgs[id]
	if !ok {
		return nil, false, domain.ErrRecordNotFound
	}
	if m.RecipientID != usrID || m.Read {
		return &m, false, nil
	}
	m.Read = true
	r.s.data.msgs[id] = m
	return &m, true, nil
}
