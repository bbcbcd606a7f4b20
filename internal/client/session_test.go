package client

import (
	"context"
	"testing"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(b *backend, me string) *Session {
	return NewSession(&domain.User{ID: me, Name: me}, b.store(me), nil)
}

func insertEvent(m *domain.Message) *domain.ChangeEvent {
	return domain.NewMessageEvent(domain.MessageInserted, m)
}

func TestFirstContactScenario(t *testing.T) {
	b := newBackend("u1", "u2")
	ctx := context.Background()
	alice, bob := newTestSession(b, "u1"), newTestSession(b, "u2")
	l1 := "L1"

	c, created, err := alice.EnsureConversation(ctx, "u2", &l1)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "u1", c.ParticipantAID)
	assert.Equal(t, "u2", c.ParticipantBID)

	same, created, err := bob.EnsureConversation(ctx, "u1", &l1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, c.ID, same.ID)

	m, err := alice.Send(ctx, c.ID, &domain.MessageSend{Content: "Hi, is this available?"})
	require.NoError(t, err)
	assert.Equal(t, "u2", m.RecipientID)
	assert.False(t, m.Read)

	snap, err := bob.Unread.GetUnreadCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.UnreadCounts{c.ID: 1}, snap.Counts)

	require.NoError(t, bob.SetActive(ctx, c.ID))
	assert.Empty(t, bob.Unread.Snapshot().Counts)
	snap, err = bob.Unread.GetUnreadCounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Counts)
	assert.Empty(t, b.unreadMessages("u2"))
	require.Equal(t, 1, bob.Thread().Len())
	assert.True(t, bob.Thread().Messages()[0].Read)

	reply, err := bob.Send(ctx, c.ID, &domain.MessageSend{Content: "Yes, still available!"})
	require.NoError(t, err)
	assert.Equal(t, "u1", reply.RecipientID)
	assert.Equal(t, 2, bob.Thread().Len())

	snap, err = alice.Unread.GetUnreadCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.UnreadCounts{c.ID: 1}, snap.Counts)
}

func TestActiveSuppression(t *testing.T) {
	b := newBackend("u1", "u2")
	ctx := context.Background()
	c := seed(t, b, "u1", "u2", 2)
	bob := newTestSession(b, "u2")
	require.NoError(t, bob.SetActive(ctx, c.ID))

	m, err := b.store("u1").SendMessage(ctx, c.ID, &domain.MessageSend{Content: "still there?"})
	require.NoError(t, err)
	bob.onMessageInserted(ctx, insertEvent(m))

	assert.Zero(t, bob.Unread.Snapshot().Counts[c.ID])
	snap, err := bob.Unread.GetUnreadCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.Counts[c.ID])
	assert.Empty(t, b.unreadMessages("u2"))
	assert.Equal(t, 3, bob.Thread().Len())
}

func TestUnreadConservation(t *testing.T) {
	b := newBackend("u1", "u2", "u3", "u4")
	ctx := context.Background()
	c1 := seed(t, b, "u1", "u2", 2)
	seed(t, b, "u3", "u2", 3)
	seed(t, b, "u4", "u2", 1)
	bob := newTestSession(b, "u2")

	// the active conversation keeps unread rows while its reads are failing
	b.failWith("MarkRead", domain.ErrTransientNetwork)
	b.failWith("MarkMessageRead", domain.ErrTransientNetwork)
	assert.ErrorIs(t, bob.SetActive(ctx, c1.ID), domain.ErrTransientNetwork)
	b.heal("MarkRead")

	_, err := bob.Unread.GetUnreadCounts(ctx)
	require.NoError(t, err)
	var stored int
	for _, m := range b.unreadMessages("u2") {
		if m.ConversationID != bob.GetActive() {
			stored++
		}
	}
	assert.Equal(t, 4, stored)
	assert.Equal(t, stored, bob.Unread.Snapshot().Total)
}

func TestPollThenSameInsertCountsOnce(t *testing.T) {
	b := newBackend("u1", "u2")
	ctx := context.Background()
	c := seed(t, b, "u1", "u2", 0)
	bob := newTestSession(b, "u2")

	m, err := b.store("u1").SendMessage(ctx, c.ID, &domain.MessageSend{Content: "ping"})
	require.NoError(t, err)
	_, err = bob.Unread.GetUnreadCounts(ctx)
	require.NoError(t, err)
	// the insert was buffered while the poll ran
	bob.onMessageInserted(ctx, insertEvent(m))

	assert.Len(t, b.unreadMessages("u2"), 1)
	assert.Equal(t, domain.UnreadCounts{c.ID: 1}, bob.Unread.Snapshot().Counts)
	assert.Equal(t, 1, bob.Unread.Snapshot().Total)
}

func TestClearActiveFlushesPendingReads(t *testing.T) {
	b := newBackend("u1", "u2")
	ctx := context.Background()
	c := seed(t, b, "u1", "u2", 1)
	bob := newTestSession(b, "u2")
	require.NoError(t, bob.SetActive(ctx, c.ID))
	markReads := b.callCount("MarkRead")

	b.failWith("MarkMessageRead", domain.ErrTransientNetwork)
	m, err := b.store("u1").SendMessage(ctx, c.ID, &domain.MessageSend{Content: "seen but not stored"})
	require.NoError(t, err)
	bob.onMessageInserted(ctx, insertEvent(m))
	require.Len(t, b.unreadMessages("u2"), 1)

	require.NoError(t, bob.ClearActive(ctx))
	assert.Equal(t, markReads+1, b.callCount("MarkRead"))
	assert.Empty(t, b.unreadMessages("u2"))
	assert.Empty(t, bob.GetActive())
	assert.Nil(t, bob.Thread())
}

func TestClearActiveWithoutPendingSkipsRead(t *testing.T) {
	b := newBackend("u1", "u2")
	ctx := context.Background()
	c := seed(t, b, "u1", "u2", 1)
	bob := newTestSession(b, "u2")
	require.NoError(t, bob.SetActive(ctx, c.ID))

	m, err := b.store("u1").SendMessage(ctx, c.ID, &domain.MessageSend{Content: "read live"})
	require.NoError(t, err)
	bob.onMessageInserted(ctx, insertEvent(m))
	markReads := b.callCount("MarkRead")

	require.NoError(t, bob.ClearActive(ctx))
	assert.Equal(t, markReads, b.callCount("MarkRead"))
	assert.Empty(t, b.unreadMessages("u2"))
}

func TestSetActiveRetriesFailedReadOnClear(t *testing.T) {
	b := newBackend("u1", "u2")
	ctx := context.Background()
	c := seed(t, b, "u1", "u2", 2)
	bob := newTestSession(b, "u2")

	b.failWith("MarkRead", domain.ErrTransientNetwork)
	err := bob.SetActive(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrTransientNetwork)
	assert.Equal(t, c.ID, bob.GetActive())
	assert.Zero(t, bob.Unread.Snapshot().Total)

	b.heal("MarkRead")
	require.NoError(t, bob.ClearActive(ctx))
	assert.Empty(t, b.unreadMessages("u2"))
}

func TestSetActiveRejectsForeignConversation(t *testing.T) {
	b := newBackend("u1", "u2", "u3")
	ctx := context.Background()
	c := seed(t, b, "u1", "u2", 1)
	eve := newTestSession(b, "u3")

	assert.ErrorIs(t, eve.SetActive(ctx, c.ID), domain.ErrNotParticipant)
	assert.Empty(t, eve.GetActive())
	assert.Nil(t, eve.Thread())
	assert.ErrorIs(t, eve.SetActive(ctx, "missing"), domain.ErrConversationNotFound)
	assert.ErrorIs(t, eve.SetActive(ctx, ""), domain.ErrConversationNotFound)
}

func TestSwitchingActiveConversation(t *testing.T) {
	b := newBackend("u1", "u2", "u3")
	ctx := context.Background()
	c1 := seed(t, b, "u1", "u2", 1)
	c2 := seed(t, b, "u3", "u2", 1)
	bob := newTestSession(b, "u2")

	require.NoError(t, bob.SetActive(ctx, c1.ID))
	require.NoError(t, bob.SetActive(ctx, c2.ID))
	assert.Equal(t, c2.ID, bob.GetActive())
	assert.Equal(t, c2.ID, bob.Thread().ConversationID())

	m, err := b.store("u1").SendMessage(ctx, c1.ID, &domain.MessageSend{Content: "back to you"})
	require.NoError(t, err)
	bob.onMessageInserted(ctx, insertEvent(m))
	assert.Equal(t, domain.UnreadCounts{c1.ID: 1}, bob.Unread.Snapshot().Counts)
	assert.Equal(t, 1, bob.Thread().Len())
}

func TestReplayedInsertIsMergedOnce(t *testing.T) {
	b := newBackend("u1", "u2")
	ctx := context.Background()
	c := seed(t, b, "u1", "u2", 0)
	bob := newTestSession(b, "u2")
	require.NoError(t, bob.SetActive(ctx, c.ID))
	l := NewListener(bob, b.feed("u2"), PollConfig{})

	m, err := b.store("u1").SendMessage(ctx, c.ID, &domain.MessageSend{Content: "once"})
	require.NoError(t, err)
	assert.True(t, l.Mux().Dispatch(ctx, insertEvent(m)))
	assert.False(t, l.Mux().Dispatch(ctx, insertEvent(m)))
	// a replay that bypasses the multiplexer is still merged once
	bob.onMessageInserted(ctx, insertEvent(m))
	require.NoError(t, bob.CatchUp(ctx))
	assert.Equal(t, 1, bob.Thread().Len())
}

func TestReplayedInsertElsewhereCountsOnce(t *testing.T) {
	b := newBackend("u1", "u2")
	ctx := context.Background()
	c := seed(t, b, "u1", "u2", 0)
	bob := newTestSession(b, "u2")
	require.NoError(t, bob.LoadConversations(ctx))

	m, err := b.store("u1").SendMessage(ctx, c.ID, &domain.MessageSend{Content: "ping"})
	require.NoError(t, err)
	bob.onMessageInserted(ctx, insertEvent(m))
	bob.onMessageInserted(ctx, insertEvent(m))
	assert.Equal(t, 1, bob.Unread.Snapshot().Counts[c.ID])

	got, ok := bob.Conversations.Get(c.ID)
	require.True(t, ok)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, "ping", *got.LastMessage)
	assert.Equal(t, 1, got.UnreadCount)
	assert.True(t, m.CreatedAt.Equal(got.UpdatedAt))
}

func TestInsertForUnknownConversationFetchesIt(t *testing.T) {
	b := newBackend("u1", "u2")
	ctx := context.Background()
	bob := newTestSession(b, "u2")
	c := seed(t, b, "u1", "u2", 0)

	m, err := b.store("u1").SendMessage(ctx, c.ID, &domain.MessageSend{Content: "first"})
	require.NoError(t, err)
	bob.onMessageInserted(ctx, insertEvent(m))
	convos := bob.Conversations.Sorted()
	require.Len(t, convos, 1)
	assert.Equal(t, c.ID, convos[0].ID)
	assert.Equal(t, "first", *convos[0].LastMessage)
}

func TestConversationListOrdering(t *testing.T) {
	b := newBackend("u1", "u2", "u3")
	ctx := context.Background()
	bob := newTestSession(b, "u2")
	c1 := seed(t, b, "u1", "u2", 1)
	c2 := seed(t, b, "u3", "u2", 1)
	require.NoError(t, bob.LoadConversations(ctx))
	assert.Equal(t, c2.ID, bob.Conversations.Sorted()[0].ID)

	_, err := bob.Send(ctx, c1.ID, &domain.MessageSend{Content: "bump"})
	require.NoError(t, err)
	assert.Equal(t, c1.ID, bob.Conversations.Sorted()[0].ID)

	updated, err := b.store("u3").GetConversation(ctx, c2.ID)
	require.NoError(t, err)
	updated.UpdatedAt = updated.UpdatedAt.Add(time.Hour)
	bob.onConversationUpdated(ctx, domain.NewConversationEvent(updated))
	assert.Equal(t, c2.ID, bob.Conversations.Sorted()[0].ID)
}

func TestSendIsIdempotentPerRequest(t *testing.T) {
	b := newBackend("u1", "u2")
	ctx := context.Background()
	c := seed(t, b, "u1", "u2", 0)
	alice := newTestSession(b, "u1")

	in := &domain.MessageSend{Content: "only once"}
	m1, err := alice.Send(ctx, c.ID, in)
	require.NoError(t, err)
	require.NotNil(t, in.ClientMsgID)
	m2, err := alice.Send(ctx, c.ID, in)
	require.NoError(t, err)
	assert.Equal(t, m1.ID, m2.ID)
	assert.Len(t, b.unreadMessages("u2"), 1)
}

func TestSendRejectsBlankLocally(t *testing.T) {
	b := newBackend("u1", "u2")
	c := seed(t, b, "u1", "u2", 0)
	alice := newTestSession(b, "u1")
	_, err := alice.Send(context.Background(), c.ID, &domain.MessageSend{Content: " \t "})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	assert.Zero(t, b.callCount("SendMessage"))
}

func TestCacheFallback(t *testing.T) {
	b := newBackend("u1", "u2")
	ctx := context.Background()
	c := seed(t, b, "u1", "u2", 2)
	cache := newMemCache()

	online := NewSession(&domain.User{ID: "u2"}, b.store("u2"), cache)
	require.NoError(t, online.LoadConversations(ctx))
	require.NoError(t, online.SetActive(ctx, c.ID))
	require.NoError(t, online.ClearActive(ctx))

	b.failWith("GetConversations", domain.ErrTransientNetwork)
	b.failWith("FetchMessages", domain.ErrTransientNetwork)
	offline := NewSession(&domain.User{ID: "u2"}, b.store("u2"), cache)
	assert.ErrorIs(t, offline.LoadConversations(ctx), domain.ErrTransientNetwork)
	convos := offline.Conversations.Sorted()
	require.Len(t, convos, 1)
	assert.Equal(t, c.ID, convos[0].ID)

	assert.ErrorIs(t, offline.SetActive(ctx, c.ID), domain.ErrTransientNetwork)
	assert.Equal(t, 2, offline.Thread().Len())
}
