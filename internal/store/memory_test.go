package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorlist/concierge-core/internal/model"
)

func newThread(id string, participants ...string) *model.Thread {
	now := time.Now()
	return &model.Thread{
		ID:             id,
		ParticipantIDs: participants,
		Type:           model.ThreadTypeConcierge,
		Status:         model.ThreadStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func newMessage(id, threadID string, role model.SenderRole, at time.Time) *model.Message {
	return &model.Message{
		ID:         id,
		ThreadID:   threadID,
		SenderID:   "u1",
		SenderRole: role,
		Content:    "content " + id,
		Type:       model.MessageTypeText,
		Timestamp:  at,
	}
}

func TestMemoryStoreMessageOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	require.NoError(t, s.AppendThread(ctx, newThread("t1", "u1", "v1")))

	base := time.Now()
	require.NoError(t, s.AppendMessage(ctx, newMessage("m1", "t1", model.RoleUser, base)))
	require.NoError(t, s.AppendMessage(ctx, newMessage("m2", "t1", model.RoleSystem, base.Add(time.Second))))
	// Same timestamp as m2: insertion order must break the tie.
	require.NoError(t, s.AppendMessage(ctx, newMessage("m3", "t1", model.RoleUser, base.Add(time.Second))))

	msgs, err := s.ListMessages(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, "m3", msgs[2].ID)
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	_, err := s.GetThread(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ListMessages(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.AppendMessage(ctx, newMessage("m1", "missing", model.RoleUser, time.Now()))
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateThreadSummary(ctx, "missing", "p", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListThreads(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	t1 := newThread("t1", "u1", "v1")
	t2 := newThread("t2", "u1", "v2")
	t3 := newThread("t3", "u2", "v1")
	closed := newThread("t4", "u1", "v3")
	closed.Status = model.ThreadStatusClosed

	for _, th := range []*model.Thread{t1, t2, t3, closed} {
		require.NoError(t, s.AppendThread(ctx, th))
	}

	// Bump t1 so it sorts first.
	require.NoError(t, s.UpdateThreadSummary(ctx, "t1", "latest", time.Now().Add(time.Minute)))

	threads, err := s.ListThreads(ctx, "u1", model.ThreadStatusActive)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "t1", threads[0].ID)
	assert.Equal(t, "t2", threads[1].ID)
}

func TestMemoryStoreMarkMessagesRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	require.NoError(t, s.AppendThread(ctx, newThread("t1", "u1", "v1")))

	base := time.Now()
	require.NoError(t, s.AppendMessage(ctx, newMessage("m1", "t1", model.RoleUser, base)))
	require.NoError(t, s.AppendMessage(ctx, newMessage("m2", "t1", model.RoleSystem, base.Add(time.Second))))
	require.NoError(t, s.AppendMessage(ctx, newMessage("m3", "t1", model.RoleSystem, base.Add(2*time.Second))))

	// Reader is a user: their own messages are excluded.
	marked, err := s.MarkMessagesRead(ctx, "t1", model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	// Idempotent: nothing left to mark.
	marked, err = s.MarkMessagesRead(ctx, "t1", model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, 0, marked)

	msgs, err := s.ListMessages(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, msgs[0].IsRead)
	assert.True(t, msgs[1].IsRead)
	assert.True(t, msgs[2].IsRead)
}

func TestMemoryStoreUnreadCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	require.NoError(t, s.AppendThread(ctx, newThread("t1", "u1", "v1")))

	require.NoError(t, s.IncrementUnread(ctx, "t1"))
	require.NoError(t, s.IncrementUnread(ctx, "t1"))

	th, err := s.GetThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, th.UnreadCount)

	require.NoError(t, s.ResetUnreadCount(ctx, "t1"))
	require.NoError(t, s.ResetUnreadCount(ctx, "t1"))

	th, err = s.GetThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 0, th.UnreadCount)
}

func TestMemoryStoreCopiesOnRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	require.NoError(t, s.AppendThread(ctx, newThread("t1", "u1", "v1")))

	th, err := s.GetThread(ctx, "t1")
	require.NoError(t, err)
	th.UnreadCount = 99
	th.ParticipantIDs[0] = "mutated"

	fresh, err := s.GetThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.UnreadCount)
	assert.Equal(t, "u1", fresh.ParticipantIDs[0])
}
