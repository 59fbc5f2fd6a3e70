// Package store defines the systems of record for threads and messages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/doorlist/concierge-core/internal/model"
)

var (
	// ErrNotFound indicates the referenced thread or message does not
	// exist. Non-retryable.
	ErrNotFound = errors.New("store: not found")

	// ErrUnavailable indicates a transient backend failure. Reads may be
	// retried; writes must surface to the caller to avoid silent
	// duplication.
	ErrUnavailable = errors.New("store: backend unavailable")
)

// ThreadStore is the durable record of chat threads. Every successful write
// becomes visible to change feed subscribers.
type ThreadStore interface {
	// AppendThread persists a new thread.
	AppendThread(ctx context.Context, t *model.Thread) error

	// GetThread returns a thread by id.
	GetThread(ctx context.Context, threadID string) (*model.Thread, error)

	// ListThreads returns the participant's threads with the given status,
	// ordered by updatedAt descending.
	ListThreads(ctx context.Context, participantID string, status model.ThreadStatus) ([]model.Thread, error)

	// UpdateThreadSummary sets lastMessagePreview and updatedAt.
	UpdateThreadSummary(ctx context.Context, threadID, preview string, updatedAt time.Time) error

	// IncrementUnread bumps the thread's unread counter.
	IncrementUnread(ctx context.Context, threadID string) error

	// ResetUnreadCount sets the unread counter back to zero.
	ResetUnreadCount(ctx context.Context, threadID string) error
}

// MessageStore is the durable append-only record of chat messages.
type MessageStore interface {
	// AppendMessage persists a message. Content and sender fields are
	// immutable after this call.
	AppendMessage(ctx context.Context, m *model.Message) error

	// ListMessages returns all messages in a thread ordered by timestamp
	// ascending, ties broken by insertion order.
	ListMessages(ctx context.Context, threadID string) ([]model.Message, error)

	// MarkMessagesRead flips isRead on every unread message in the thread
	// whose sender role differs from excludeRole. Returns the number of
	// messages updated. Safe to call repeatedly.
	MarkMessagesRead(ctx context.Context, threadID string, excludeRole model.SenderRole) (int, error)
}
