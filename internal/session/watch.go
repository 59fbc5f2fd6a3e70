package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/doorlist/concierge-core/internal/model"
	"github.com/doorlist/concierge-core/internal/store"
	"github.com/doorlist/concierge-core/pkg/logger"
)

// SubscriptionState tracks the lifecycle of a live observation.
type SubscriptionState int32

const (
	StateUnsubscribed SubscriptionState = iota
	StateSubscribing
	StateLive
	StateReconnecting
)

func (s SubscriptionState) String() string {
	switch s {
	case StateSubscribing:
		return "subscribing"
	case StateLive:
		return "live"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unsubscribed"
	}
}

// Number of consecutive refetch failures before the watcher reports degraded
// connectivity.
const degradedAfterFailures = 5

const (
	refetchBackoffBase = 500 * time.Millisecond
	refetchBackoffMax  = 30 * time.Second
)

// MessagesWatcher delivers the full ordered message list of one thread on
// subscribe and after every change signal. Feed events are wake-up triggers
// only: each delivery is a fresh read from the store, which makes the stream
// immune to duplicated or reordered notifications.
type MessagesWatcher struct {
	updates chan []model.Message
	state   atomic.Int32
	stop    func()
	stopped sync.Once
}

// Updates returns the snapshot channel. It closes when the watcher stops.
func (w *MessagesWatcher) Updates() <-chan []model.Message { return w.updates }

// State returns the watcher's current subscription state.
func (w *MessagesWatcher) State() SubscriptionState {
	return SubscriptionState(w.state.Load())
}

// Stop unsubscribes and closes the updates channel. Safe to call repeatedly.
func (w *MessagesWatcher) Stop() { w.stopped.Do(w.stop) }

// ThreadsWatcher is the thread-list counterpart of MessagesWatcher.
type ThreadsWatcher struct {
	updates chan []model.Thread
	state   atomic.Int32
	stop    func()
	stopped sync.Once
}

// Updates returns the snapshot channel. It closes when the watcher stops.
func (w *ThreadsWatcher) Updates() <-chan []model.Thread { return w.updates }

// State returns the watcher's current subscription state.
func (w *ThreadsWatcher) State() SubscriptionState {
	return SubscriptionState(w.state.Load())
}

// Stop unsubscribes and closes the updates channel. Safe to call repeatedly.
func (w *ThreadsWatcher) Stop() { w.stopped.Do(w.stop) }

// ObserveMessages subscribes to a thread's change feed and publishes a fresh
// ordered snapshot immediately and after every subsequent event. The
// consumer loop runs on its own goroutine; Stop (or Close on the manager)
// ends it.
func (m *Manager) ObserveMessages(ctx context.Context, threadID string) (*MessagesWatcher, error) {
	w := &MessagesWatcher{updates: make(chan []model.Message, 1)}
	w.state.Store(int32(StateSubscribing))

	sub, err := m.feed.Subscribe(ctx, model.TopicMessages, threadID)
	if err != nil {
		w.state.Store(int32(StateUnsubscribed))
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	w.stop = func() {
		cancel()
		sub.Unsubscribe()
		m.removeWatcher(w)
	}
	if err := m.addWatcher(w); err != nil {
		cancel()
		sub.Unsubscribe()
		return nil, err
	}

	fetch := func(fctx context.Context) (any, error) {
		return m.messages.ListMessages(fctx, threadID)
	}
	publish := func(v any) {
		replaceSnapshot(w.updates, v.([]model.Message))
	}

	go func() {
		defer close(w.updates)
		runWatchLoop(loopCtx, &w.state, sub.Events(), fetch, publish, m.logger.With(
			zap.String("topic", string(model.TopicMessages)),
			zap.String("filter", threadID),
		))
	}()

	return w, nil
}

// ObserveThreads subscribes to the user's thread-list feed with the same
// refetch-on-signal behavior as ObserveMessages.
func (m *Manager) ObserveThreads(ctx context.Context, userID string) (*ThreadsWatcher, error) {
	w := &ThreadsWatcher{updates: make(chan []model.Thread, 1)}
	w.state.Store(int32(StateSubscribing))

	sub, err := m.feed.Subscribe(ctx, model.TopicThreads, userID)
	if err != nil {
		w.state.Store(int32(StateUnsubscribed))
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	w.stop = func() {
		cancel()
		sub.Unsubscribe()
		m.removeWatcher(w)
	}
	if err := m.addWatcher(w); err != nil {
		cancel()
		sub.Unsubscribe()
		return nil, err
	}

	fetch := func(fctx context.Context) (any, error) {
		return m.threads.ListThreads(fctx, userID, model.ThreadStatusActive)
	}
	publish := func(v any) {
		replaceSnapshot(w.updates, v.([]model.Thread))
	}

	go func() {
		defer close(w.updates)
		runWatchLoop(loopCtx, &w.state, sub.Events(), fetch, publish, m.logger.With(
			zap.String("topic", string(model.TopicThreads)),
			zap.String("filter", userID),
		))
	}()

	return w, nil
}

// runWatchLoop is the consumer for one subscription. It refetches once
// immediately, then once per received event. Transient store failures retry
// with backoff and flip the state to Reconnecting; repeated failures log a
// degraded-connectivity warning rather than retrying silently forever.
func runWatchLoop(
	ctx context.Context,
	state *atomic.Int32,
	events <-chan model.ChangeEvent,
	fetch func(context.Context) (any, error),
	publish func(any),
	log *logger.Logger,
) {
	defer state.Store(int32(StateUnsubscribed))

	failures := 0
	refetch := func() {
		backoff := refetchBackoffBase
		for {
			snapshot, err := fetch(ctx)
			if err == nil {
				failures = 0
				state.Store(int32(StateLive))
				publish(snapshot)
				return
			}
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			if !errors.Is(err, store.ErrUnavailable) {
				// Non-retryable (e.g. thread deleted out from under us).
				log.Warn("refetch failed", zap.Error(err))
				return
			}

			failures++
			state.Store(int32(StateReconnecting))
			if failures == degradedAfterFailures {
				log.Warn("connectivity degraded, still retrying", zap.Int("failures", failures))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > refetchBackoffMax {
				backoff = refetchBackoffMax
			}
		}
	}

	// Initial refetch covers anything that changed before the subscription
	// was live.
	refetch()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			refetch()
		}
	}
}

// replaceSnapshot delivers the latest snapshot, displacing an unconsumed
// older one. Observers always see the newest state; intermediate snapshots
// carry no information the newest one lacks.
func replaceSnapshot[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
