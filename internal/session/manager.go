// Package session orchestrates the chat core: it owns feed subscriptions and
// the conversation context cache, exposes thread and message operations, and
// runs the classify-respond pipeline exactly once per inbound user message.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doorlist/concierge-core/internal/convctx"
	"github.com/doorlist/concierge-core/internal/feed"
	"github.com/doorlist/concierge-core/internal/intent"
	"github.com/doorlist/concierge-core/internal/model"
	"github.com/doorlist/concierge-core/internal/respond"
	"github.com/doorlist/concierge-core/internal/store"
	"github.com/doorlist/concierge-core/pkg/logger"
	"github.com/doorlist/concierge-core/pkg/metrics"
)

const previewMaxLen = 80

// ErrClosed is returned by operations on a torn-down manager.
var ErrClosed = errors.New("session: manager closed")

// Manager is the chat session manager. One instance serves one logical
// session (a process, or a device's connection); the stores behind it are
// shared across sessions, the context cache and subscriptions are not.
type Manager struct {
	threads  store.ThreadStore
	messages store.MessageStore
	feed     feed.Feed
	gen      *respond.Generator
	contexts *convctx.Cache
	logger   *logger.Logger

	mu          sync.Mutex
	threadLocks map[string]*sync.Mutex
	openLocks   map[openKey]*sync.Mutex
	openIndex   map[openKey]string
	watchers    map[watcher]struct{}
	closed      bool

	now   func() time.Time
	newID func() string
}

type openKey struct {
	venueID   string
	bookingID string
}

type watcher interface {
	Stop()
}

// Config bundles the manager's collaborators.
type Config struct {
	Threads  store.ThreadStore
	Messages store.MessageStore
	Feed     feed.Feed
	Reply    *respond.Generator
	Contexts *convctx.Cache
	Logger   *logger.Logger
}

// NewManager creates a chat session manager.
func NewManager(cfg Config) *Manager {
	contexts := cfg.Contexts
	if contexts == nil {
		contexts = convctx.NewCache(0, 0)
	}
	return &Manager{
		threads:     cfg.Threads,
		messages:    cfg.Messages,
		feed:        cfg.Feed,
		gen:         cfg.Reply,
		contexts:    contexts,
		logger:      cfg.Logger,
		threadLocks: make(map[string]*sync.Mutex),
		openLocks:   make(map[openKey]*sync.Mutex),
		openIndex:   make(map[openKey]string),
		watchers:    make(map[watcher]struct{}),
		now:         time.Now,
		newID:       func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// OpenThread opens or resumes the user's concierge thread for a venue.
// Idempotent per (venueID, bookingID): a thread already known to this session
// (or listed for the user in the store) is returned without creating a
// duplicate. A new thread is durably persisted together with its greeting
// message before the id is returned.
func (m *Manager) OpenThread(ctx context.Context, userID, venueID, venueName, bookingID string) (*model.Thread, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}

	key := openKey{venueID: venueID, bookingID: bookingID}

	// Serialize check-then-create per key so concurrent opens for the same
	// venue+booking cannot both miss the index and create duplicates.
	lock := m.openLock(key)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	if id, ok := m.openIndex[key]; ok {
		m.mu.Unlock()
		return m.threads.GetThread(ctx, id)
	}
	m.mu.Unlock()

	// A thread for this venue+booking may predate the session.
	if existing, err := m.findExisting(ctx, userID, key); err == nil && existing != nil {
		m.index(key, existing.ID)
		return existing, nil
	}

	now := m.now()
	thread := &model.Thread{
		ID:             m.newID(),
		ParticipantIDs: []string{userID, venueID},
		VenueID:        venueID,
		VenueName:      venueName,
		Type:           model.ThreadTypeConcierge,
		BookingID:      bookingID,
		CreatedAt:      now,
		UpdatedAt:      now,
		Status:         model.ThreadStatusActive,
	}
	if err := m.threads.AppendThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}

	greeting := &model.Message{
		ID:         m.newID(),
		ThreadID:   thread.ID,
		SenderID:   model.ConciergeSenderID,
		SenderName: "Concierge",
		SenderRole: model.RoleSystem,
		Content:    greetingText(venueName),
		Type:       model.MessageTypeSystem,
		Timestamp:  m.now(),
		Metadata:   map[string]string{model.MetadataKeyGenerated: "greeting"},
	}
	if err := m.messages.AppendMessage(ctx, greeting); err != nil {
		return nil, fmt.Errorf("failed to persist greeting: %w", err)
	}
	if err := m.threads.UpdateThreadSummary(ctx, thread.ID, preview(greeting.Content), greeting.Timestamp); err != nil {
		m.logger.Warn("failed to update thread summary after greeting",
			zap.String("thread_id", thread.ID), zap.Error(err))
	}

	m.index(key, thread.ID)
	metrics.ThreadsTotal.WithLabelValues(string(thread.Type)).Inc()

	thread.LastMessagePreview = preview(greeting.Content)
	thread.UpdatedAt = greeting.Timestamp
	return thread, nil
}

// SendMessage persists the sender's message, updates the thread summary, and
// for non-empty text messages from users runs the classify-respond pipeline.
// The returned reply is nil when no reply was generated or its persist
// failed; a reply failure never fails the send, since the user's own message
// is already durable. Concurrent sends on one thread are serialized.
func (m *Manager) SendMessage(ctx context.Context, threadID string, sender Sender, content string, msgType model.MessageType) (*model.Message, *model.Message, error) {
	if m.isClosed() {
		return nil, nil, ErrClosed
	}
	if msgType == "" {
		msgType = model.MessageTypeText
	}

	lock := m.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	thread, err := m.threads.GetThread(ctx, threadID)
	if err != nil {
		return nil, nil, err
	}

	msg := &model.Message{
		ID:         m.newID(),
		ThreadID:   threadID,
		SenderID:   sender.ID,
		SenderName: sender.Name,
		SenderRole: sender.Role,
		Content:    content,
		Type:       msgType,
		Timestamp:  m.now(),
	}
	if err := m.messages.AppendMessage(ctx, msg); err != nil {
		return nil, nil, fmt.Errorf("failed to persist message: %w", err)
	}
	m.updateSummary(ctx, threadID, msg)
	metrics.MessagesTotal.WithLabelValues(string(sender.Role)).Inc()

	var reply *model.Message
	if msgType == model.MessageTypeText && strings.TrimSpace(content) != "" && sender.Role == model.RoleUser {
		reply = m.generateReply(ctx, thread, msg)
	}

	return msg, reply, nil
}

// Sender identifies who authored a message.
type Sender struct {
	ID   string
	Name string
	Role model.SenderRole
}

// generateReply runs classify-respond and persists the reply. All failures
// here are contained: logged, counted, never propagated.
func (m *Manager) generateReply(ctx context.Context, thread *model.Thread, userMsg *model.Message) *model.Message {
	cc := m.contexts.Get(thread.ID, userMsg.SenderID)
	cc.MentionVenue(thread.VenueID)
	cc.DiscussReservation(thread.BookingID)

	hasVenue := thread.VenueID != "" || cc.CurrentVenueID != ""
	in := intent.Classify(userMsg.Content, hasVenue)
	metrics.IntentClassificationsTotal.WithLabelValues(string(in)).Inc()

	text, shouldSend := m.gen.Respond(ctx, in, userMsg, cc, thread)
	if !shouldSend || text == "" {
		// A suppressed reply is never persisted.
		return nil
	}

	reply := &model.Message{
		ID:         m.newID(),
		ThreadID:   thread.ID,
		SenderID:   model.ConciergeSenderID,
		SenderName: "Concierge",
		SenderRole: model.RoleSystem,
		Content:    text,
		Type:       model.MessageTypeText,
		Timestamp:  m.now(),
		Metadata:   map[string]string{model.MetadataKeyGenerated: userMsg.ID},
	}
	if err := m.messages.AppendMessage(ctx, reply); err != nil {
		m.logger.Error("failed to persist concierge reply",
			zap.String("thread_id", thread.ID),
			zap.String("intent", string(in)),
			zap.Error(err))
		metrics.ReplyFailuresTotal.Inc()
		return nil
	}
	m.updateSummary(ctx, thread.ID, reply)
	metrics.RepliesTotal.WithLabelValues(string(in)).Inc()

	return reply
}

// updateSummary refreshes the thread's preview and bumps the unread counter.
// Failures are logged only: the message itself is durable and subscribers
// converge on the next refetch.
func (m *Manager) updateSummary(ctx context.Context, threadID string, msg *model.Message) {
	if err := m.threads.UpdateThreadSummary(ctx, threadID, preview(msg.Content), msg.Timestamp); err != nil {
		m.logger.Warn("failed to update thread summary",
			zap.String("thread_id", threadID), zap.Error(err))
		return
	}
	if err := m.threads.IncrementUnread(ctx, threadID); err != nil {
		m.logger.Warn("failed to bump unread count",
			zap.String("thread_id", threadID), zap.Error(err))
	}
}

// MarkRead marks every unread message in the thread not authored by the
// reader's own role as read and resets the unread counter. Idempotent.
func (m *Manager) MarkRead(ctx context.Context, threadID string, readerRole model.SenderRole) (int, error) {
	if m.isClosed() {
		return 0, ErrClosed
	}

	marked, err := m.messages.MarkMessagesRead(ctx, threadID, readerRole)
	if err != nil {
		return 0, err
	}
	if err := m.threads.ResetUnreadCount(ctx, threadID); err != nil {
		return marked, err
	}
	return marked, nil
}

// ListThreads returns the participant's active threads, newest first.
func (m *Manager) ListThreads(ctx context.Context, participantID string) ([]model.Thread, error) {
	return m.threads.ListThreads(ctx, participantID, model.ThreadStatusActive)
}

// ListMessages returns the thread's messages in delivery order.
func (m *Manager) ListMessages(ctx context.Context, threadID string) ([]model.Message, error) {
	return m.messages.ListMessages(ctx, threadID)
}

// Close tears down the session: every subscription is unsubscribed and the
// conversation context cache is cleared. No subscription outlives the
// session.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	ws := make([]watcher, 0, len(m.watchers))
	for w := range m.watchers {
		ws = append(ws, w)
	}
	m.watchers = make(map[watcher]struct{})
	m.mu.Unlock()

	for _, w := range ws {
		w.Stop()
	}
	m.contexts.Clear()
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) index(key openKey, threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openIndex[key] = threadID
}

func (m *Manager) findExisting(ctx context.Context, userID string, key openKey) (*model.Thread, error) {
	listed, err := m.threads.ListThreads(ctx, userID, model.ThreadStatusActive)
	if err != nil {
		// Listing is best-effort here; a miss just creates a fresh thread.
		return nil, err
	}
	for i := range listed {
		t := &listed[i]
		if t.VenueID == key.venueID && t.BookingID == key.bookingID {
			return t, nil
		}
	}
	return nil, nil
}

func (m *Manager) openLock(key openKey) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.openLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.openLocks[key] = lock
	}
	return lock
}

func (m *Manager) threadLock(threadID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.threadLocks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		m.threadLocks[threadID] = lock
	}
	return lock
}

func (m *Manager) addWatcher(w watcher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.watchers[w] = struct{}{}
	return nil
}

func (m *Manager) removeWatcher(w watcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watchers, w)
}

func preview(content string) string {
	if len(content) <= previewMaxLen {
		return content
	}
	// Cut on a rune boundary so the stored preview stays valid UTF-8.
	cut := previewMaxLen - 3
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}

func greetingText(venueName string) string {
	if venueName == "" {
		return "Hi! I'm your concierge. How can I help tonight?"
	}
	return fmt.Sprintf("Hi! I'm your concierge for %s. How can I help tonight?", venueName)
}
