package client

import (
	"context"
	"errors"
	"log/slog"
	gosync "sync"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

// Session is the client state of one logged-in user: the active conversation, the unread counts, the
// conversation list and the displayed thread. Two sessions never share any of it.
type Session struct {
	user          *domain.User
	store         Datastore
	cache         LocalCache
	active        *ActiveConversation
	Unread        *UnreadTracker
	Conversations *ConversationList

	switchMu gosync.Mutex // serializes SetActive & ClearActive
	threadMu gosync.RWMutex
	thread   *Thread
}

// NewSession accepts a nil cache, nothing is then persisted locally
func NewSession(user *domain.User, store Datastore, cache LocalCache) *Session {
	active := new(ActiveConversation)
	return &Session{
		user:          user,
		store:         store,
		cache:         cache,
		active:        active,
		Unread:        NewUnreadTracker(store, active),
		Conversations: NewConversationList(),
	}
}

func (s *Session) User() *domain.User {
	return s.user
}

func (s *Session) GetActive() string {
	return s.active.Get()
}

// Thread returns the displayed thread of the active conversation, nil when none is active
func (s *Session) Thread() *Thread {
	s.threadMu.RLock()
	defer s.threadMu.RUnlock()
	return s.thread
}

// SetActive opens conversationID: its count is suppressed right away, its messages are stored as read and
// the counts recomputed before the thread is loaded. The previously active conversation is closed first.
func (s *Session) SetActive(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return domain.ErrConversationNotFound
	}
	s.switchMu.Lock()
	defer s.switchMu.Unlock()
	if cur := s.active.Get(); cur != "" && cur != conversationID {
		if err := s.clearActive(ctx); err != nil {
			slog.Warn("final read of the previous conversation", "conversationID", cur, "error", err)
		}
	}
	if !s.active.Is(conversationID) {
		s.active.set(conversationID)
		s.threadMu.Lock()
		s.thread = NewThread(conversationID)
		s.threadMu.Unlock()
	}
	s.Conversations.ApplyUnread(s.Unread.publish().Counts)

	if err := s.Unread.MarkRead(ctx, conversationID); err != nil {
		if domain.IsCallerError(err) {
			s.active.clear()
			s.setThread(nil)
			s.Conversations.ApplyUnread(s.Unread.publish().Counts)
			return err
		}
		// the read is retried when the conversation is left
		s.active.markDirty()
		s.loadThreadFromCache(ctx, conversationID)
		return err
	}
	s.Conversations.ApplyUnread(s.Unread.Snapshot().Counts)
	if err := s.CatchUp(ctx); err != nil {
		s.loadThreadFromCache(ctx, conversationID)
		return err
	}
	return nil
}

// ClearActive leaves the active conversation, issuing a final read when messages seen while it was open
// were not stored as read yet.
func (s *Session) ClearActive(ctx context.Context) error {
	s.switchMu.Lock()
	defer s.switchMu.Unlock()
	return s.clearActive(ctx)
}

func (s *Session) clearActive(ctx context.Context) error {
	id := s.active.Get()
	if id == "" {
		return nil
	}
	var err error
	if s.active.needsFlush() {
		err = s.Unread.MarkRead(ctx, id)
	}
	s.active.clear()
	s.setThread(nil)
	s.Conversations.ApplyUnread(s.Unread.publish().Counts)
	return err
}

func (s *Session) setThread(t *Thread) {
	s.threadMu.Lock()
	defer s.threadMu.Unlock()
	s.thread = t
}

// EnsureConversation finds or creates the conversation with otherID about listingID
func (s *Session) EnsureConversation(
	ctx context.Context,
	otherID string,
	listingID *string,
) (*domain.Conversation, bool, error) {
	c, created, err := s.store.EnsureConversation(ctx, otherID, listingID)
	if err != nil {
		return nil, false, err
	}
	s.Conversations.Upsert(c)
	s.cacheConvos(ctx, c)
	return c, created, nil
}

// LoadConversations refreshes the list, falling back to the local cache when the API is unreachable
func (s *Session) LoadConversations(ctx context.Context) error {
	convos, _, err := s.store.GetConversations(ctx, &domain.Filter{Page: 1, PageSize: 100})
	if err != nil {
		if errors.Is(err, domain.ErrTransientNetwork) && s.cache != nil {
			if cached, cerr := s.cache.GetConversations(ctx); cerr == nil && len(s.Conversations.Sorted()) == 0 {
				s.Conversations.Replace(cached)
			}
		}
		return err
	}
	s.Conversations.Replace(convos)
	if s.active.Get() != "" {
		s.Conversations.ApplyUnread(s.Unread.Snapshot().Counts)
	}
	s.cacheConvos(ctx, convos...)
	return nil
}

// Refresh polls everything the session displays, used when the change feed is down
func (s *Session) Refresh(ctx context.Context) error {
	_, unreadErr := s.Unread.GetUnreadCounts(ctx)
	listErr := s.LoadConversations(ctx)
	s.Conversations.ApplyUnread(s.Unread.Snapshot().Counts)
	return errors.Join(unreadErr, listErr, s.CatchUp(ctx))
}

func (s *Session) cacheConvos(ctx context.Context, convos ...*domain.Conversation) {
	if s.cache == nil || len(convos) == 0 {
		return
	}
	if err := s.cache.SaveConversations(ctx, convos...); err != nil {
		slog.Error(err.Error())
	}
}

func (s *Session) cacheMsgs(ctx context.Context, msgs ...*domain.Message) {
	if s.cache == nil || len(msgs) == 0 {
		return
	}
	if err := s.cache.SaveMsgs(ctx, msgs...); err != nil {
		slog.Error(err.Error())
	}
}
