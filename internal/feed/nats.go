package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/doorlist/concierge-core/internal/model"
	"github.com/doorlist/concierge-core/pkg/logger"
	"github.com/doorlist/concierge-core/pkg/metrics"
)

// SubjectPrefix is the prefix for all change feed subjects.
const SubjectPrefix = "chat"

// NATSConfig holds NATS connection configuration.
type NATSConfig struct {
	URL   string
	Name  string
	Token string
}

// NATSFeed is a Feed backed by core NATS publish/subscribe. The client
// reconnects forever; NATS restores subscriptions after a reconnect, and the
// feed additionally wakes every subscriber so the mandatory refetch covers
// any change missed during the gap.
type NATSFeed struct {
	conn   *nats.Conn
	logger *logger.Logger

	mu   sync.RWMutex
	subs map[*Subscription]*nats.Subscription
}

// Subject returns the feed subject for a (topic, filter) pair.
func Subject(topic model.ChangeTopic, filter string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, topic, filter)
}

// ConnectNATS establishes a NATS-backed feed.
func ConnectNATS(cfg NATSConfig, log *logger.Logger) (*NATSFeed, error) {
	f := &NATSFeed{
		logger: log,
		subs:   make(map[*Subscription]*nats.Subscription),
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("NATS reconnected")
			f.wakeAll()
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	f.conn = nc

	return f, nil
}

// Conn returns the underlying NATS connection, shared with the booking
// collaborator client.
func (f *NATSFeed) Conn() *nats.Conn {
	return f.conn
}

// IsConnected reports whether the transport is currently connected.
func (f *NATSFeed) IsConnected() bool {
	return f.conn != nil && f.conn.IsConnected()
}

// Subscribe implements Feed.
func (f *NATSFeed) Subscribe(_ context.Context, topic model.ChangeTopic, filter string) (*Subscription, error) {
	sub := &Subscription{
		Topic:  topic,
		Filter: filter,
		ch:     make(chan model.ChangeEvent, subscriptionBuffer),
	}

	ns, err := f.conn.Subscribe(Subject(topic, filter), func(msg *nats.Msg) {
		ev := model.ChangeEvent{Topic: topic, Key: filter, EmittedAt: time.Now()}
		// Payload is advisory only; a decode failure still wakes the
		// subscriber.
		_ = json.Unmarshal(msg.Data, &ev)
		metrics.FeedEventsTotal.WithLabelValues(string(topic)).Inc()
		sub.deliver(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Subject(topic, filter), err)
	}

	sub.cancel = func() { f.remove(sub) }

	f.mu.Lock()
	f.subs[sub] = ns
	f.mu.Unlock()

	return sub, nil
}

// Publish implements Publisher.
func (f *NATSFeed) Publish(_ context.Context, ev model.ChangeEvent) error {
	if ev.EmittedAt.IsZero() {
		ev.EmittedAt = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := f.conn.Publish(Subject(ev.Topic, ev.Key), data); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

// Close implements Feed.
func (f *NATSFeed) Close() error {
	f.mu.Lock()
	for sub, ns := range f.subs {
		_ = ns.Unsubscribe()
		sub.close()
		delete(f.subs, sub)
	}
	f.mu.Unlock()

	if f.conn != nil {
		f.conn.Close()
	}
	return nil
}

func (f *NATSFeed) remove(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Unsubscribe does not wait for an in-flight handler callback, so the
	// channel is closed through sub.close, which excludes deliver.
	if ns, ok := f.subs[sub]; ok {
		_ = ns.Unsubscribe()
		sub.close()
		delete(f.subs, sub)
	}
}

// wakeAll emits a synthetic event on every live subscription so consumers
// refetch state that may have changed while the transport was down.
func (f *NATSFeed) wakeAll() {
	now := time.Now()

	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.subs {
		sub.deliver(model.ChangeEvent{Topic: sub.Topic, Key: sub.Filter, EmittedAt: now})
	}
}
