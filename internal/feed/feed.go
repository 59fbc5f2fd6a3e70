// Package feed provides the change notification channel between the stores
// and live subscribers. The feed signals that something changed; it never
// carries row payloads. Delivery is at-least-once and may coalesce or reorder
// rapid successive changes, so subscribers must re-fetch affected rows from
// the store on every event and once immediately after (re)subscribing.
package feed

import (
	"context"
	"sync"

	"github.com/doorlist/concierge-core/internal/model"
)

// Subscription yields change events for one (topic, filter) pair. The
// channel never closes on its own; it ends only on Unsubscribe or feed
// shutdown.
type Subscription struct {
	Topic  model.ChangeTopic
	Filter string

	mu     sync.Mutex
	closed bool
	ch     chan model.ChangeEvent
	cancel func()
}

// Events returns the event channel.
func (s *Subscription) Events() <-chan model.ChangeEvent {
	return s.ch
}

// Unsubscribe releases the underlying channel. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	// Invoked outside the mutex: cancel re-enters close.
	if cancel != nil {
		cancel()
	}
}

// deliver pushes an event without blocking. A full buffer drops the event;
// that is safe because events are pure wake-up signals and a later event (or
// the subscriber's next refetch) covers the same state. deliver and close
// share a mutex: transports invoke deliver from their own goroutines, which
// must never race an Unsubscribe into a send on a closed channel.
func (s *Subscription) deliver(ev model.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
	default:
	}
}

// close shuts the event channel exactly once.
func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Publisher is the write side of the feed, used by stores after a commit.
type Publisher interface {
	Publish(ctx context.Context, ev model.ChangeEvent) error
}

// Feed multiplexes change notifications to any number of subscribers.
type Feed interface {
	Publisher

	// Subscribe registers for events matching (topic, filter). A filter
	// is a thread id for TopicMessages, a participant id for TopicThreads.
	Subscribe(ctx context.Context, topic model.ChangeTopic, filter string) (*Subscription, error)

	// Close tears down the feed and all subscriptions.
	Close() error
}

// NopPublisher discards events. Used where a store is exercised without a
// live feed.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, model.ChangeEvent) error { return nil }

const subscriptionBuffer = 16
