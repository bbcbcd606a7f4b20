package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	for _, err := range []error{
		ErrNotAuthenticated, ErrInvalidTarget, ErrEmptyMessage,
		ErrNotParticipant, ErrConversationNotFound, ErrRecordNotFound,
	} {
		wrapped := fmt.Errorf("handling request: %w", err)
		code := ErrorCode(wrapped)
		require.NotEmpty(t, code, err.Error())
		assert.ErrorIs(t, ErrorFromCode(code), err)
		assert.True(t, IsCallerError(wrapped))
	}

	ev := NewErrValidation()
	ev.AddError("content", "too long")
	assert.Equal(t, CodeValidation, ErrorCode(fmt.Errorf("send: %w", ev)))

	assert.Empty(t, ErrorCode(ErrTransientNetwork))
	assert.False(t, IsCallerError(ErrTransientNetwork))
	assert.Nil(t, ErrorFromCode("teapot"))
}

func TestErrValidationKeepsFirstMessage(t *testing.T) {
	ev := NewErrValidation()
	ev.Evaluate(false, "name", "must be provided")
	ev.Evaluate(false, "name", "must be 3 bytes long")
	ev.Evaluate(true, "email", "must be a valid")
	assert.True(t, ev.HasErrors())
	assert.Equal(t, map[string]string{"name": "must be provided"}, ev.Errors)
}

func TestCursor(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)
	m := &Message{ID: "b", CreatedAt: base}

	c, err := DecodeCursor(EncodeCursor(m), 10)
	require.NoError(t, err)
	assert.True(t, c.AfterCreatedAt.Equal(base))
	assert.Equal(t, "b", c.AfterID)
	assert.Equal(t, 10, c.Limit())

	assert.False(t, c.After(m))
	assert.False(t, c.After(&Message{ID: "a", CreatedAt: base}))
	assert.True(t, c.After(&Message{ID: "c", CreatedAt: base}))
	assert.True(t, c.After(&Message{ID: "a", CreatedAt: base.Add(time.Nanosecond)}))

	start, err := DecodeCursor("", 0)
	require.NoError(t, err)
	assert.True(t, start.After(m))
	assert.Equal(t, DefaultCursorSize, start.Limit())

	for _, bad := range []string{"%%%", "bm90LWEtY3Vyc29y", EncodeCursor(&Message{CreatedAt: base})} {
		_, err = DecodeCursor(bad, 0)
		assert.Error(t, err, bad)
	}
}

func TestPageMessages(t *testing.T) {
	base := time.Now()
	var msgs []*Message
	for i := range 3 {
		msgs = append(msgs, &Message{ID: fmt.Sprint(i), CreatedAt: base.Add(time.Duration(i))})
	}

	page, md := PageMessages(msgs, 2)
	assert.Len(t, page, 2)
	assert.True(t, md.HasMore)
	assert.Equal(t, EncodeCursor(msgs[1]), md.NextCursor)

	page, md = PageMessages(msgs[:1], 2)
	assert.Len(t, page, 1)
	assert.False(t, md.HasMore)

	_, md = PageMessages(nil, 2)
	assert.Empty(t, md.NextCursor)
}

func TestSortMessages(t *testing.T) {
	base := time.Now()
	msgs := []*Message{
		{ID: "c", CreatedAt: base},
		{ID: "a", CreatedAt: base.Add(time.Second)},
		{ID: "b", CreatedAt: base},
	}
	SortMessages(msgs)
	assert.Equal(t, "b", msgs[0].ID)
	assert.Equal(t, "c", msgs[1].ID)
	assert.Equal(t, "a", msgs[2].ID)
}

func TestConversationKey(t *testing.T) {
	l := "  L1 "
	blank := "   "
	l1 := "L1"
	assert.Equal(t, ConversationKey("u1", "u2", &l1), ConversationKey("u2", "u1", &l))
	assert.Equal(t, ConversationKey("u1", "u2", nil), ConversationKey("u2", "u1", &blank))
	assert.NotEqual(t, ConversationKey("u1", "u2", nil), ConversationKey("u1", "u2", &l1))
}

func TestChangeEventKey(t *testing.T) {
	m := &Message{ID: "m1", ConversationID: "c1"}
	inserted := NewMessageEvent(MessageInserted, m)
	replay := NewMessageEvent(MessageInserted, m)
	assert.Equal(t, inserted.Key(), replay.Key())
	assert.Equal(t, "c1", inserted.ConversationID())
	assert.True(t, inserted.Valid())

	read := *m
	read.Read = true
	assert.NotEqual(t, inserted.Key(), NewMessageEvent(MessageUpdated, &read).Key())

	c := &Conversation{ID: "c1", UpdatedAt: time.Now()}
	ev := NewConversationEvent(c)
	bumped := *c
	bumped.UpdatedAt = c.UpdatedAt.Add(time.Microsecond)
	assert.NotEqual(t, ev.Key(), NewConversationEvent(&bumped).Key())
	assert.Equal(t, "c1", ev.ConversationID())

	assert.False(t, (&ChangeEvent{Kind: MessageInserted}).Valid())
	assert.False(t, (&ChangeEvent{Kind: "bogus", Message: m}).Valid())
}

func TestUnreadStateWatermarks(t *testing.T) {
	base := time.Now()
	s := NewUnreadState()
	s.Observe(&Message{ID: "a", ConversationID: "c1", CreatedAt: base.Add(time.Second)})
	s.Observe(&Message{ID: "b", ConversationID: "c1", CreatedAt: base})
	s.Observe(&Message{ID: "c", ConversationID: "c2", CreatedAt: base, Read: true})

	assert.Equal(t, UnreadCounts{"c1": 2}, s.Counts)
	assert.True(t, s.Watermarks["c1"].Equal(base.Add(time.Second)))
	assert.True(t, s.Covers(&Message{ID: "b", ConversationID: "c1", CreatedAt: base}))
	assert.True(t, s.Covers(&Message{ID: "c", ConversationID: "c2", CreatedAt: base}))
	assert.False(t, s.Covers(&Message{ID: "d", ConversationID: "c1", CreatedAt: base.Add(2 * time.Second)}))
	assert.False(t, s.Covers(&Message{ID: "e", ConversationID: "c3", CreatedAt: base}))

	c := s.Clone()
	c.Counts["c1"] = 7
	c.Watermarks["c3"] = base
	assert.Equal(t, 2, s.Counts["c1"])
	assert.NotContains(t, s.Watermarks, "c3")
}
