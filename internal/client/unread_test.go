package client

import (
	"context"
	"testing"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seed creates a conversation between from & to and sends n messages from from
func seed(t *testing.T, b *backend, from, to string, n int) *domain.Conversation {
	t.Helper()
	ctx := context.Background()
	s := b.store(from)
	c, _, err := s.EnsureConversation(ctx, to, nil)
	require.NoError(t, err)
	for range n {
		_, err = s.SendMessage(ctx, c.ID, &domain.MessageSend{Content: "hello"})
		require.NoError(t, err)
	}
	return c
}

func TestUnreadTrackerSuppressesActive(t *testing.T) {
	b := newBackend("u1", "u2", "u3")
	c1 := seed(t, b, "u1", "u2", 2)
	c2 := seed(t, b, "u3", "u2", 3)
	active := new(ActiveConversation)
	tracker := NewUnreadTracker(b.store("u2"), active)
	ctx := context.Background()

	snap, err := tracker.GetUnreadCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.UnreadCounts{c1.ID: 2, c2.ID: 3}, snap.Counts)
	assert.Equal(t, 5, snap.Total)

	active.set(c1.ID)
	snap = tracker.Snapshot()
	assert.Equal(t, domain.UnreadCounts{c2.ID: 3}, snap.Counts)
	assert.Equal(t, 3, snap.Total)
	// display suppression only, nothing was stored as read
	assert.Len(t, b.unreadMessages("u2"), 5)

	active.clear()
	assert.Equal(t, 5, tracker.Snapshot().Total)
}

func TestUnreadTrackerIncrement(t *testing.T) {
	b := newBackend("u1", "u2")
	active := new(ActiveConversation)
	tracker := NewUnreadTracker(b.store("u2"), active)
	at := time.Now()
	msg := func(convID, id string) *domain.Message {
		return &domain.Message{ID: id, ConversationID: convID, RecipientID: "u2", CreatedAt: at}
	}

	assert.True(t, tracker.Increment(msg("c1", "m1")))
	assert.False(t, tracker.Increment(msg("c1", "m1")))
	assert.True(t, tracker.Increment(msg("c1", "m2")))
	active.set("c2")
	assert.False(t, tracker.Increment(msg("c2", "m3")))

	snap := tracker.Snapshot()
	assert.Equal(t, domain.UnreadCounts{"c1": 2}, snap.Counts)
	assert.Equal(t, 2, snap.Total)
}

func TestUnreadTrackerSkipsMessagesTheFetchCounted(t *testing.T) {
	b := newBackend("u1", "u2")
	c := seed(t, b, "u1", "u2", 1)
	tracker := NewUnreadTracker(b.store("u2"), new(ActiveConversation))
	ctx := context.Background()
	fetchedMsg := b.unreadMessages("u2")[0]

	_, err := tracker.GetUnreadCounts(ctx)
	require.NoError(t, err)
	// the insert event of a message the fetch already saw arrives late
	assert.False(t, tracker.Increment(fetchedMsg))
	assert.Equal(t, 1, tracker.Snapshot().Total)

	later, err := b.store("u1").SendMessage(ctx, c.ID, &domain.MessageSend{Content: "and another"})
	require.NoError(t, err)
	assert.True(t, tracker.Increment(later))
	assert.Equal(t, 2, tracker.Snapshot().Total)

	_, err = tracker.GetUnreadCounts(ctx)
	require.NoError(t, err)
	assert.False(t, tracker.Increment(later))
	assert.Equal(t, 2, tracker.Snapshot().Total)
	assert.Len(t, b.unreadMessages("u2"), 2)
}

func TestUnreadTrackerKeepsLiveBumpsAcrossStaleFetch(t *testing.T) {
	b := newBackend("u1", "u2")
	c := seed(t, b, "u1", "u2", 1)
	tracker := NewUnreadTracker(b.store("u2"), new(ActiveConversation))
	ctx := context.Background()

	// delivered live but stored after the fetch below read the counts
	live := &domain.Message{ID: "live", ConversationID: c.ID, RecipientID: "u2", CreatedAt: time.Now()}
	assert.True(t, tracker.Increment(live))

	snap, err := tracker.GetUnreadCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Total)
	assert.False(t, tracker.Increment(live))
	assert.Equal(t, 2, tracker.Snapshot().Total)
}

func TestUnreadTrackerMarkReadIsIdempotent(t *testing.T) {
	b := newBackend("u1", "u2")
	c := seed(t, b, "u1", "u2", 3)
	tracker := NewUnreadTracker(b.store("u2"), new(ActiveConversation))
	ctx := context.Background()
	_, err := tracker.GetUnreadCounts(ctx)
	require.NoError(t, err)

	require.NoError(t, tracker.MarkRead(ctx, c.ID))
	assert.Empty(t, b.unreadMessages("u2"))
	assert.Zero(t, tracker.Snapshot().Total)

	require.NoError(t, tracker.MarkRead(ctx, c.ID))
	assert.Empty(t, b.unreadMessages("u2"))
	assert.Zero(t, tracker.Snapshot().Total)
}

func TestUnreadTrackerPublishesSnapshots(t *testing.T) {
	b := newBackend("u1", "u2")
	c := seed(t, b, "u1", "u2", 1)
	tracker := NewUnreadTracker(b.store("u2"), new(ActiveConversation))
	token, ch := tracker.Subscribe()
	defer tracker.Unsubscribe(token)
	assert.Zero(t, (<-ch).Total)

	_, err := tracker.GetUnreadCounts(context.Background())
	require.NoError(t, err)
	snap := <-ch
	assert.Equal(t, 1, snap.Counts[c.ID])
}

func TestUnreadTrackerKeepsCountsOnFailure(t *testing.T) {
	b := newBackend("u1", "u2")
	seed(t, b, "u1", "u2", 2)
	tracker := NewUnreadTracker(b.store("u2"), new(ActiveConversation))
	ctx := context.Background()
	_, err := tracker.GetUnreadCounts(ctx)
	require.NoError(t, err)

	b.failWith("GetUnreadCounts", domain.ErrTransientNetwork)
	snap, err := tracker.GetUnreadCounts(ctx)
	assert.ErrorIs(t, err, domain.ErrTransientNetwork)
	assert.Equal(t, 2, snap.Total)
}
