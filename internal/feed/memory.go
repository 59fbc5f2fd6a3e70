package feed

import (
	"context"
	"sync"
	"time"

	"github.com/doorlist/concierge-core/internal/model"
)

// MemoryFeed is an in-process feed implementation. It backs tests and
// single-process deployments where no broker is available.
type MemoryFeed struct {
	mu     sync.RWMutex
	subs   map[subKey]map[*Subscription]struct{}
	closed bool
}

type subKey struct {
	topic  model.ChangeTopic
	filter string
}

// NewMemoryFeed creates an in-process feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		subs: make(map[subKey]map[*Subscription]struct{}),
	}
}

// Subscribe implements Feed.
func (f *MemoryFeed) Subscribe(_ context.Context, topic model.ChangeTopic, filter string) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := subKey{topic: topic, filter: filter}
	sub := &Subscription{
		Topic:  topic,
		Filter: filter,
		ch:     make(chan model.ChangeEvent, subscriptionBuffer),
	}
	sub.cancel = func() { f.remove(key, sub) }

	if f.subs[key] == nil {
		f.subs[key] = make(map[*Subscription]struct{})
	}
	f.subs[key][sub] = struct{}{}

	return sub, nil
}

// Publish implements Publisher. Fan-out never blocks the writer.
func (f *MemoryFeed) Publish(_ context.Context, ev model.ChangeEvent) error {
	if ev.EmittedAt.IsZero() {
		ev.EmittedAt = time.Now()
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.subs[subKey{topic: ev.Topic, filter: ev.Key}] {
		sub.deliver(ev)
	}
	return nil
}

// Close implements Feed.
func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	for key, set := range f.subs {
		for sub := range set {
			sub.close()
		}
		delete(f.subs, key)
	}
	return nil
}

func (f *MemoryFeed) remove(key subKey, sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	if set, ok := f.subs[key]; ok {
		if _, ok := set[sub]; ok {
			delete(set, sub)
			sub.close()
		}
		if len(set) == 0 {
			delete(f.subs, key)
		}
	}
}
