package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorlist/concierge-core/internal/model"
)

func TestMemoryFeedDeliversToMatchingSubscribers(t *testing.T) {
	ctx := context.Background()
	f := NewMemoryFeed()
	defer f.Close()

	sub, err := f.Subscribe(ctx, model.TopicMessages, "t1")
	require.NoError(t, err)
	other, err := f.Subscribe(ctx, model.TopicMessages, "t2")
	require.NoError(t, err)

	require.NoError(t, f.Publish(ctx, model.ChangeEvent{Topic: model.TopicMessages, Key: "t1"}))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, "t1", ev.Key)
		assert.False(t, ev.EmittedAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected event on matching subscription")
	}

	select {
	case <-other.Events():
		t.Fatal("event delivered to non-matching subscription")
	default:
	}
}

func TestMemoryFeedUnsubscribeClosesChannel(t *testing.T) {
	ctx := context.Background()
	f := NewMemoryFeed()
	defer f.Close()

	sub, err := f.Subscribe(ctx, model.TopicThreads, "u1")
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe() // repeated calls are safe

	_, open := <-sub.Events()
	assert.False(t, open)

	// Publishing after unsubscribe is a no-op.
	require.NoError(t, f.Publish(ctx, model.ChangeEvent{Topic: model.TopicThreads, Key: "u1"}))
}

func TestMemoryFeedOverflowDropsInsteadOfBlocking(t *testing.T) {
	ctx := context.Background()
	f := NewMemoryFeed()
	defer f.Close()

	sub, err := f.Subscribe(ctx, model.TopicMessages, "t1")
	require.NoError(t, err)

	// Publish well past the buffer size; the writer must never block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriptionBuffer*4; i++ {
			_ = f.Publish(ctx, model.ChangeEvent{Topic: model.TopicMessages, Key: "t1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}

	// At least one wake-up survived; that is all a signal-only feed owes.
	select {
	case <-sub.Events():
	default:
		t.Fatal("expected at least one buffered event")
	}
}

func TestMemoryFeedClose(t *testing.T) {
	ctx := context.Background()
	f := NewMemoryFeed()

	sub, err := f.Subscribe(ctx, model.TopicMessages, "t1")
	require.NoError(t, err)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, open := <-sub.Events()
	assert.False(t, open)
}
