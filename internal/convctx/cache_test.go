package convctx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheLazyCreate(t *testing.T) {
	c := NewCache(4, time.Hour)

	ctx := c.Get("t1", "u1")
	require.NotNil(t, ctx)
	assert.Equal(t, "t1", ctx.ThreadID)
	assert.Equal(t, "u1", ctx.UserID)
	assert.Empty(t, ctx.MentionedVenues)
	assert.Zero(t, ctx.Preferences.GroupSize)

	// Second access returns the same entry.
	ctx.MentionVenue("v1")
	again := c.Get("t1", "u1")
	assert.Contains(t, again.MentionedVenues, "v1")
	assert.Equal(t, "v1", again.CurrentVenueID)
	assert.Equal(t, 1, c.Len())
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2, time.Hour)

	c.Get("t1", "u1").MentionVenue("v1")
	c.Get("t2", "u1")
	c.Get("t1", "u1") // refresh t1
	c.Get("t3", "u1") // evicts t2

	assert.Equal(t, 2, c.Len())
	assert.Contains(t, c.Get("t1", "u1").MentionedVenues, "v1")

	// t2 was evicted and comes back fresh.
	t2 := c.Get("t2", "u1")
	assert.Empty(t, t2.MentionedVenues)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := NewCache(4, time.Minute)

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Get("t1", "u1").MentionVenue("v1")

	// Within TTL the entry survives.
	c.now = func() time.Time { return now.Add(30 * time.Second) }
	assert.Contains(t, c.Get("t1", "u1").MentionedVenues, "v1")

	// Idle past TTL it is rebuilt with defaults.
	c.now = func() time.Time { return now.Add(30*time.Second + 2*time.Minute) }
	assert.Empty(t, c.Get("t1", "u1").MentionedVenues)
}

func TestCacheRemoveAndClear(t *testing.T) {
	c := NewCache(4, time.Hour)

	c.Get("t1", "u1").MentionVenue("v1")
	c.Get("t2", "u1")

	c.Remove("t1")
	assert.Equal(t, 1, c.Len())
	assert.Empty(t, c.Get("t1", "u1").MentionedVenues)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestContextHelpers(t *testing.T) {
	c := NewCache(4, time.Hour)
	ctx := c.Get("t1", "u1")

	ctx.MentionVenue("")
	ctx.DiscussReservation("")
	assert.Empty(t, ctx.MentionedVenues)
	assert.Empty(t, ctx.DiscussedReservations)

	ctx.MentionVenue("v1")
	ctx.MentionVenue("v2")
	ctx.DiscussReservation("b1")
	assert.Len(t, ctx.MentionedVenues, 2)
	assert.Equal(t, "v2", ctx.CurrentVenueID)
	assert.Contains(t, ctx.DiscussedReservations, "b1")
}
