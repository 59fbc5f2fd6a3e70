// Package convctx holds per-thread conversation working memory. The cache is
// process-local and never authoritative: evicting or losing an entry only
// degrades personalization, never correctness.
package convctx

import (
	"container/list"
	"sync"
	"time"
)

// Preferences captures what the concierge has learned about a user.
type Preferences struct {
	PriceRange string
	VenueTypes []string
	GroupSize  int
	TimeOfDay  string
}

// Context is the working memory for one thread.
type Context struct {
	ThreadID              string
	UserID                string
	CurrentVenueID        string
	MentionedVenues       map[string]struct{}
	DiscussedReservations map[string]struct{}
	Preferences           Preferences
	LastActivity          time.Time
}

// MentionVenue records a venue as part of the conversation.
func (c *Context) MentionVenue(venueID string) {
	if venueID == "" {
		return
	}
	c.MentionedVenues[venueID] = struct{}{}
	c.CurrentVenueID = venueID
}

// DiscussReservation records a reservation id as part of the conversation.
func (c *Context) DiscussReservation(bookingID string) {
	if bookingID == "" {
		return
	}
	c.DiscussedReservations[bookingID] = struct{}{}
}

// Cache is a bounded LRU of thread contexts with a TTL on lastActivity.
// There is exactly one live entry per thread id.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	ctx *Context
}

// NewCache creates a cache holding at most maxSize entries, expiring entries
// idle longer than ttl. Zero values fall back to sane defaults.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 1024
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the context for a thread, lazily creating it with default
// preferences on first access. Every access refreshes recency and
// lastActivity.
func (c *Cache) Get(threadID, userID string) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if el, ok := c.entries[threadID]; ok {
		entry := el.Value.(*cacheEntry)
		if now.Sub(entry.ctx.LastActivity) <= c.ttl {
			entry.ctx.LastActivity = now
			c.order.MoveToFront(el)
			return entry.ctx
		}
		// Expired: rebuild from defaults.
		c.order.Remove(el)
		delete(c.entries, threadID)
	}

	ctx := &Context{
		ThreadID:              threadID,
		UserID:                userID,
		MentionedVenues:       make(map[string]struct{}),
		DiscussedReservations: make(map[string]struct{}),
		LastActivity:          now,
	}
	c.entries[threadID] = c.order.PushFront(&cacheEntry{ctx: ctx})
	c.evictLocked()
	return ctx
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Remove drops a single thread's context.
func (c *Cache) Remove(threadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[threadID]; ok {
		c.order.Remove(el)
		delete(c.entries, threadID)
	}
}

// Clear drops all contexts, used on session teardown.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

func (c *Cache) evictLocked() {
	for c.order.Len() > c.maxSize {
		el := c.order.Back()
		if el == nil {
			return
		}
		entry := el.Value.(*cacheEntry)
		c.order.Remove(el)
		delete(c.entries, entry.ctx.ThreadID)
	}
}
