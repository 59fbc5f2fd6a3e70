package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doorlist/concierge-core/internal/feed"
	"github.com/doorlist/concierge-core/internal/model"
)

// RedisStore implements ThreadStore and MessageStore on Redis.
//
// Layout:
//
//	thread:<id>          JSON-encoded thread
//	thread:<id>:msgs     ZSET of JSON-encoded messages scored by insertion seq
//	thread:<id>:seq      insertion counter for the thread's message log
//	participant:<id>     SET of thread ids the participant belongs to
type RedisStore struct {
	client *redis.Client
	pub    feed.Publisher
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string, pub feed.Publisher) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if pub == nil {
		pub = feed.NopPublisher{}
	}
	return &RedisStore{client: client, pub: pub}, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func threadKey(id string) string      { return "thread:" + id }
func messagesKey(id string) string    { return "thread:" + id + ":msgs" }
func seqKey(id string) string         { return "thread:" + id + ":seq" }
func participantKey(id string) string { return "participant:" + id }

// unavailable wraps transient backend errors with the retryability sentinel.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// AppendThread implements ThreadStore.
func (s *RedisStore) AppendThread(ctx context.Context, t *model.Thread) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal thread: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, threadKey(t.ID), data, 0)
	for _, p := range t.ParticipantIDs {
		pipe.SAdd(ctx, participantKey(p), t.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable(err)
	}

	s.notifyThread(ctx, t)
	return nil
}

// GetThread implements ThreadStore.
func (s *RedisStore) GetThread(ctx context.Context, threadID string) (*model.Thread, error) {
	data, err := s.client.Get(ctx, threadKey(threadID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}

	var t model.Thread
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("failed to parse thread: %w", err)
	}
	return &t, nil
}

// ListThreads implements ThreadStore.
func (s *RedisStore) ListThreads(ctx context.Context, participantID string, status model.ThreadStatus) ([]model.Thread, error) {
	ids, err := s.client.SMembers(ctx, participantKey(participantID)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = threadKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	var out []model.Thread
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // index entry for a missing thread
		}
		var t model.Thread
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// UpdateThreadSummary implements ThreadStore.
func (s *RedisStore) UpdateThreadSummary(ctx context.Context, threadID, preview string, updatedAt time.Time) error {
	return s.mutateThread(ctx, threadID, func(t *model.Thread) {
		t.LastMessagePreview = preview
		t.UpdatedAt = updatedAt
	})
}

// IncrementUnread implements ThreadStore.
func (s *RedisStore) IncrementUnread(ctx context.Context, threadID string) error {
	return s.mutateThread(ctx, threadID, func(t *model.Thread) {
		t.UnreadCount++
	})
}

// ResetUnreadCount implements ThreadStore.
func (s *RedisStore) ResetUnreadCount(ctx context.Context, threadID string) error {
	return s.mutateThread(ctx, threadID, func(t *model.Thread) {
		t.UnreadCount = 0
	})
}

// mutateThread applies fn to the stored thread under optimistic locking so
// concurrent summary writes from other processes are not lost.
func (s *RedisStore) mutateThread(ctx context.Context, threadID string, fn func(*model.Thread)) error {
	var updated *model.Thread

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, threadKey(threadID)).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return unavailable(err)
		}

		var t model.Thread
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return fmt.Errorf("failed to parse thread: %w", err)
		}
		fn(&t)

		out, err := json.Marshal(&t)
		if err != nil {
			return fmt.Errorf("failed to marshal thread: %w", err)
		}
		updated = &t

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, threadKey(threadID), out, 0)
			return nil
		})
		return err
	}

	for i := 0; i < 3; i++ {
		err := s.client.Watch(ctx, txn, threadKey(threadID))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) {
				return err
			}
			return unavailable(err)
		}
		s.notifyThread(ctx, updated)
		return nil
	}
	return unavailable(redis.TxFailedErr)
}

// AppendMessage implements MessageStore.
func (s *RedisStore) AppendMessage(ctx context.Context, m *model.Message) error {
	exists, err := s.client.Exists(ctx, threadKey(m.ThreadID)).Result()
	if err != nil {
		return unavailable(err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	seq, err := s.client.Incr(ctx, seqKey(m.ThreadID)).Result()
	if err != nil {
		return unavailable(err)
	}
	m.Seq = uint64(seq)

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := s.client.ZAdd(ctx, messagesKey(m.ThreadID), redis.Z{
		Score:  float64(seq),
		Member: data,
	}).Err(); err != nil {
		return unavailable(err)
	}

	_ = s.pub.Publish(ctx, model.ChangeEvent{Topic: model.TopicMessages, Key: m.ThreadID})
	return nil
}

// ListMessages implements MessageStore.
func (s *RedisStore) ListMessages(ctx context.Context, threadID string) ([]model.Message, error) {
	exists, err := s.client.Exists(ctx, threadKey(threadID)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	raw, err := s.client.ZRange(ctx, messagesKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	out := make([]model.Message, 0, len(raw))
	for _, r := range raw {
		var m model.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			continue
		}
		out = append(out, m)
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
func (s *RedisStore) MarkMessagesRead(ctx context.Context, threadID string, excludeRole model.SenderRole) (int, error) {
	msgs, err := s.ListMessages(ctx, threadID)
	if err != nil {
		return 0, err
	}

	pipe := s.client.TxPipeline()
	marked := 0
	for _, m := range msgs {
		if m.IsRead || m.SenderRole == excludeRole {
			continue
		}
		old, err := json.Marshal(&m)
		if err != nil {
			continue
		}
		m.IsRead = true
		upd, err := json.Marshal(&m)
		if err != nil {
			continue
		}
		pipe.ZRem(ctx, messagesKey(threadID), old)
		pipe.ZAdd(ctx, messagesKey(threadID), redis.Z{Score: float64(m.Seq), Member: upd})
		marked++
	}

	if marked > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, unavailable(err)
		}
		_ = s.pub.Publish(ctx, model.ChangeEvent{Topic: model.TopicMessages, Key: threadID})
	}
	return marked, nil
}

func (s *RedisStore) notifyThread(ctx context.Context, t *model.Thread) {
	for _, p := range t.ParticipantIDs {
		_ = s.pub.Publish(ctx, model.ChangeEvent{Topic: model.TopicThreads, Key: p})
	}
}
