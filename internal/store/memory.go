package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/doorlist/concierge-core/internal/feed"
	"github.com/doorlist/concierge-core/internal/model"
)

// MemoryStore is a map-backed ThreadStore + MessageStore for tests and
// single-process deployments. Writes notify the change feed the same way the
// Redis store does.
type MemoryStore struct {
	pub feed.Publisher

	mu       sync.RWMutex
	threads  map[string]*model.Thread
	messages map[string][]*model.Message
	seq      uint64
}

// NewMemoryStore creates an in-memory store publishing change events to pub.
func NewMemoryStore(pub feed.Publisher) *MemoryStore {
	if pub == nil {
		pub = feed.NopPublisher{}
	}
	return &MemoryStore{
		pub:      pub,
		threads:  make(map[string]*model.Thread),
		messages: make(map[string][]*model.Message),
	}
}

// AppendThread implements ThreadStore.
func (s *MemoryStore) AppendThread(ctx context.Context, t *model.Thread) error {
	s.mu.Lock()
	cp := *t
	cp.ParticipantIDs = append([]string(nil), t.ParticipantIDs...)
	s.threads[t.ID] = &cp
	s.mu.Unlock()

	s.notifyThread(ctx, &cp)
	return nil
}

// GetThread implements ThreadStore.
func (s *MemoryStore) GetThread(_ context.Context, threadID string) (*model.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	cp.ParticipantIDs = append([]string(nil), t.ParticipantIDs...)
	return &cp, nil
}

// ListThreads implements ThreadStore.
func (s *MemoryStore) ListThreads(_ context.Context, participantID string, status model.ThreadStatus) ([]model.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Thread
	for _, t := range s.threads {
		if !t.HasParticipant(participantID) {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, *t)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// UpdateThreadSummary implements ThreadStore.
func (s *MemoryStore) UpdateThreadSummary(ctx context.Context, threadID, preview string, updatedAt time.Time) error {
	s.mu.Lock()
	t, ok := s.threads[threadID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	t.LastMessagePreview = preview
	t.UpdatedAt = updatedAt
	cp := *t
	s.mu.Unlock()

	s.notifyThread(ctx, &cp)
	return nil
}

// IncrementUnread implements ThreadStore.
func (s *MemoryStore) IncrementUnread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	t, ok := s.threads[threadID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	t.UnreadCount++
	cp := *t
	s.mu.Unlock()

	s.notifyThread(ctx, &cp)
	return nil
}

// ResetUnreadCount implements ThreadStore.
func (s *MemoryStore) ResetUnreadCount(ctx context.Context, threadID string) error {
	s.mu.Lock()
	t, ok := s.threads[threadID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	t.UnreadCount = 0
	cp := *t
	s.mu.Unlock()

	s.notifyThread(ctx, &cp)
	return nil
}

// AppendMessage implements MessageStore.
func (s *MemoryStore) AppendMessage(ctx context.Context, m *model.Message) error {
	s.mu.Lock()
	if _, ok := s.threads[m.ThreadID]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.seq++
	cp := *m
	cp.Seq = s.seq
	m.Seq = s.seq
	s.messages[m.ThreadID] = append(s.messages[m.ThreadID], &cp)
	s.mu.Unlock()

	_ = s.pub.Publish(ctx, model.ChangeEvent{Topic: model.TopicMessages, Key: m.ThreadID})
	return nil
}

// ListMessages implements MessageStore.
func (s *MemoryStore) ListMessages(_ context.Context, threadID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.threads[threadID]; !ok {
		return nil, ErrNotFound
	}

	msgs := s.messages[threadID]
	out := make([]model.Message, len(msgs))
	for i, m := range msgs {
		out[i] = *m
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// MarkMessagesRead implements MessageStore.
func (s *MemoryStore) MarkMessagesRead(ctx context.Context, threadID string, excludeRole model.SenderRole) (int, error) {
	s.mu.Lock()
	if _, ok := s.threads[threadID]; !ok {
		s.mu.Unlock()
		return 0, ErrNotFound
	}

	marked := 0
	for _, m := range s.messages[threadID] {
		if !m.IsRead && m.SenderRole != excludeRole {
			m.IsRead = true
			marked++
		}
	}
	s.mu.Unlock()

	if marked > 0 {
		_ = s.pub.Publish(ctx, model.ChangeEvent{Topic: model.TopicMessages, Key: threadID})
	}
	return marked, nil
}

// notifyThread wakes the thread-list subscription of every participant.
func (s *MemoryStore) notifyThread(ctx context.Context, t *model.Thread) {
	for _, p := range t.ParticipantIDs {
		_ = s.pub.Publish(ctx, model.ChangeEvent{Topic: model.TopicThreads, Key: p})
	}
}
