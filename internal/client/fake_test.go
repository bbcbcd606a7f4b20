package client

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

// backend is an in-process datastore shared by the fake stores & feeds of several users
type backend struct {
	mu      sync.Mutex
	seq     int
	clock   time.Time
	users   map[string]bool
	convos  map[string]*domain.Conversation
	keys    map[string]string
	msgs    map[string]*domain.Message
	sent    map[string]*domain.Message // sender|clientMsgID
	subs    map[string][]chan *domain.ChangeEvent
	failing map[string]error
	calls   map[string]int
}

func newBackend(users ...string) *backend {
	b := &backend{
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:   make(map[string]bool),
		convos:  make(map[string]*domain.Conversation),
		keys:    make(map[string]string),
		msgs:    make(map[string]*domain.Message),
		sent:    make(map[string]*domain.Message),
		subs:    make(map[string][]chan *domain.ChangeEvent),
		failing: make(map[string]error),
		calls:   make(map[string]int),
	}
	for _, u := range users {
		b.users[u] = true
	}
	return b
}

func (b *backend) store(me string) *fakeStore {
	return &fakeStore{b: b, me: me}
}

func (b *backend) feed(me string) *fakeFeed {
	return &fakeFeed{b: b, me: me}
}

func (b *backend) failWith(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[op] = err
}

func (b *backend) heal(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failing, op)
}

func (b *backend) callCount(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// enter must be called with b.mu held
func (b *backend) enter(op string) error {
	b.calls[op]++
	return b.failing[op]
}

func (b *backend) tick() time.Time {
	b.clock = b.clock.Add(time.Millisecond)
	return b.clock
}

func (b *backend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s%d", prefix, b.seq)
}

// dropFeeds closes every live subscription of usrID
func (b *backend) dropFeeds(usrID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[usrID] {
		close(ch)
	}
	delete(b.subs, usrID)
}

func (b *backend) subscribers(usrID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[usrID])
}

func (b *backend) publish(ev *domain.ChangeEvent, usrIDs ...string) {
	for _, id := range usrIDs {
		for _, ch := range b.subs[id] {
			select {
			case ch <- cloneEvent(ev):
			default:
			}
		}
	}
}

// unreadMessages returns the stored unread messages addressed to usrID
func (b *backend) unreadMessages(usrID string) []*domain.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*domain.Message
	for _, m := range b.msgs {
		if m.RecipientID == usrID && !m.Read {
			out = append(out, cloneMsg(m))
		}
	}
	return out
}

func (b *backend) participant(id, me string) (*domain.Conversation, error) {
	c, ok := b.convos[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	if !c.HasParticipant(me) {
		return nil, domain.ErrNotParticipant
	}
	return c, nil
}

func (b *backend) sortedMsgs(conversationID string) []*domain.Message {
	var out []*domain.Message
	for _, m := range b.msgs {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	domain.SortMessages(out)
	return out
}

type fakeStore struct {
	b  *backend
	me string
}

func (s *fakeStore) CurrentUser(context.Context) (*domain.User, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.enter("CurrentUser"); err != nil {
		return nil, err
	}
	return &domain.User{ID: s.me, Name: s.me}, nil
}

func (s *fakeStore) EnsureConversation(
	_ context.Context,
	otherID string,
	listingID *string,
) (*domain.Conversation, bool, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.enter("EnsureConversation"); err != nil {
		return nil, false, err
	}
	if otherID == "" || otherID == s.me || !s.b.users[otherID] {
		return nil, false, domain.ErrInvalidTarget
	}
	key := domain.ConversationKey(s.me, otherID, listingID)
	if id, ok := s.b.keys[key]; ok {
		return cloneConvo(s.b.convos[id]), false, nil
	}
	a, bID := domain.NormalizePair(s.me, otherID)
	now := s.b.tick()
	c := &domain.Conversation{
		ID:             s.b.nextID("c"),
		ParticipantAID: a,
		ParticipantBID: bID,
		ListingID:      domain.NormalizeListingID(listingID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.b.convos[c.ID] = c
	s.b.keys[key] = c.ID
	s.b.publish(domain.NewConversationEvent(c), c.Participants()...)
	return cloneConvo(c), true, nil
}

func (s *fakeStore) GetConversations(
	_ context.Context,
	f *domain.Filter,
) ([]*domain.Conversation, *domain.Metadata, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.enter("GetConversations"); err != nil {
		return nil, nil, err
	}
	var out []*domain.Conversation
	for _, c := range s.b.convos {
		if !c.HasParticipant(s.me) {
			continue
		}
		cp := cloneConvo(c)
		msgs := s.b.sortedMsgs(c.ID)
		if len(msgs) > 0 {
			last := msgs[len(msgs)-1].Content
			cp.LastMessage = &last
		}
		for _, m := range msgs {
			if m.RecipientID == s.me && !m.Read {
				cp.UnreadCount++
			}
		}
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b *domain.Conversation) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	md := domain.CalculateMetadata(len(out), f.PageSize, f.Page)
	return out, &md, nil
}

func (s *fakeStore) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.enter("GetConversation"); err != nil {
		return nil, err
	}
	c, err := s.b.participant(id, s.me)
	if err != nil {
		return nil, err
	}
	return cloneConvo(c), nil
}

func (s *fakeStore) SendMessage(
	_ context.Context,
	conversationID string,
	in *domain.MessageSend,
) (*domain.Message, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.enter("SendMessage"); err != nil {
		return nil, err
	}
	if domain.IsBlank(in.Content) {
		return nil, domain.ErrEmptyMessage
	}
	c, err := s.b.participant(conversationID, s.me)
	if err != nil {
		return nil, err
	}
	if in.ClientMsgID != nil {
		if m, ok := s.b.sent[s.me+"|"+*in.ClientMsgID]; ok {
			return cloneMsg(m), nil
		}
	}
	other, _ := c.Other(s.me)
	m := &domain.Message{
		ID:             s.b.nextID("m"),
		ConversationID: c.ID,
		SenderID:       s.me,
		RecipientID:    other,
		Content:        in.Content,
		ClientMsgID:    in.ClientMsgID,
		CreatedAt:      s.b.tick(),
	}
	s.b.msgs[m.ID] = m
	if in.ClientMsgID != nil {
		s.b.sent[s.me+"|"+*in.ClientMsgID] = m
	}
	c.UpdatedAt = m.CreatedAt
	s.b.publish(domain.NewMessageEvent(domain.MessageInserted, m), c.Participants()...)
	s.b.publish(domain.NewConversationEvent(c), c.Participants()...)
	return cloneMsg(m), nil
}

func (s *fakeStore) FetchMessages(
	_ context.Context,
	conversationID, after string,
	size int,
) ([]*domain.Message, *domain.CursorMetadata, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.enter("FetchMessages"); err != nil {
		return nil, nil, err
	}
	if _, err := s.b.participant(conversationID, s.me); err != nil {
		return nil, nil, err
	}
	cursor, err := domain.DecodeCursor(after, size)
	if err != nil {
		return nil, nil, err
	}
	var out []*domain.Message
	for _, m := range s.b.sortedMsgs(conversationID) {
		if cursor.After(m) && len(out) <= cursor.Limit() {
			out = append(out, cloneMsg(m))
		}
	}
	msgs, md := domain.PageMessages(out, cursor.Limit())
	return msgs, md, nil
}

func (s *fakeStore) GetUnreadCounts(context.Context) (*domain.UnreadState, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.enter("GetUnreadCounts"); err != nil {
		return nil, err
	}
	state := domain.NewUnreadState()
	for _, m := range s.b.msgs {
		if m.RecipientID == s.me {
			state.Observe(m)
		}
	}
	return state, nil
}

func (s *fakeStore) MarkRead(_ context.Context, conversationID string) ([]*domain.Message, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.enter("MarkRead"); err != nil {
		return nil, err
	}
	c, err := s.b.participant(conversationID, s.me)
	if err != nil {
		return nil, err
	}
	var updated []*domain.Message
	for _, m := range s.b.sortedMsgs(conversationID) {
		if m.RecipientID == s.me && !m.Read {
			m.Read = true
			updated = append(updated, cloneMsg(m))
			s.b.publish(domain.NewMessageEvent(domain.MessageUpdated, m), c.Participants()...)
		}
	}
	return updated, nil
}

func (s *fakeStore) MarkMessageRead(_ context.Context, messageID string) (*domain.Message, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.enter("MarkMessageRead"); err != nil {
		return nil, err
	}
	m, ok := s.b.msgs[messageID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	c, err := s.b.participant(m.ConversationID, s.me)
	if err != nil {
		return nil, err
	}
	if m.RecipientID == s.me && !m.Read {
		m.Read = true
		s.b.publish(domain.NewMessageEvent(domain.MessageUpdated, m), c.Participants()...)
	}
	return cloneMsg(m), nil
}

type fakeFeed struct {
	b  *backend
	me string
}

func (f *fakeFeed) Subscribe(ctx context.Context) (<-chan *domain.ChangeEvent, error) {
	f.b.mu.Lock()
	defer f.b.mu.Unlock()
	if err := f.b.enter("Subscribe"); err != nil {
		return nil, err
	}
	ch := make(chan *domain.ChangeEvent, 64)
	f.b.subs[f.me] = append(f.b.subs[f.me], ch)
	return ch, nil
}

func cloneMsg(m *domain.Message) *domain.Message {
	c := *m
	return &c
}

func cloneConvo(c *domain.Conversation) *domain.Conversation {
	cp := *c
	return &cp
}

func cloneEvent(ev *domain.ChangeEvent) *domain.ChangeEvent {
	c := *ev
	if ev.Message != nil {
		c.Message = cloneMsg(ev.Message)
	}
	if ev.Conversation != nil {
		c.Conversation = cloneConvo(ev.Conversation)
	}
	return &c
}

type memCache struct {
	mu     sync.Mutex
	convos map[string]*domain.Conversation
	msgs   map[string]*domain.Message
}

func newMemCache() *memCache {
	return &memCache{convos: make(map[string]*domain.Conversation), msgs: make(map[string]*domain.Message)}
}

func (c *memCache) SaveConversations(_ context.Context, convos ...*domain.Conversation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cv := range convos {
		c.convos[cv.ID] = cloneConvo(cv)
	}
	return nil
}

func (c *memCache) GetConversations(context.Context) ([]*domain.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*domain.Conversation
	for _, cv := range c.convos {
		out = append(out, cloneConvo(cv))
	}
	return out, nil
}

func (c *memCache) SaveMsgs(_ context.Context, msgs ...*domain.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range msgs {
		c.msgs[m.ID] = cloneMsg(m)
	}
	return nil
}

func (c *memCache) GetMsgs(_ context.Context, conversationID string) ([]*domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*domain.Message
	for _, m := range c.msgs {
		if m.ConversationID == conversationID {
			out = append(out, cloneMsg(m))
		}
	}
	domain.SortMessages(out)
	return out, nil
}
