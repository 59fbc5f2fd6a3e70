package respond

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorlist/concierge-core/internal/convctx"
	"github.com/doorlist/concierge-core/internal/intent"
	"github.com/doorlist/concierge-core/internal/model"
	"github.com/doorlist/concierge-core/pkg/logger"
)

type stubBookings struct {
	bookings []model.Booking
	err      error
	calls    int
}

func (s *stubBookings) FetchUserBookings(context.Context, string) ([]model.Booking, error) {
	s.calls++
	return s.bookings, s.err
}

func newTestContext() *convctx.Context {
	return convctx.NewCache(8, time.Hour).Get("thread-1", "user-1")
}

func testThread() *model.Thread {
	return &model.Thread{
		ID:        "thread-1",
		VenueID:   "venue-9",
		VenueName: "Velvet Room",
		Type:      model.ThreadTypeConcierge,
		Status:    model.ThreadStatusActive,
	}
}

func userMessage(content string) *model.Message {
	return &model.Message{
		ID:         "msg-1",
		ThreadID:   "thread-1",
		SenderID:   "user-1",
		SenderRole: model.RoleUser,
		Content:    content,
		Type:       model.MessageTypeText,
	}
}

func TestRespondBookingInquiry(t *testing.T) {
	future := time.Now().Add(48 * time.Hour)

	tests := []struct {
		name         string
		bookings     *stubBookings
		wantExisting bool
	}{
		{
			name: "existing upcoming booking at venue",
			bookings: &stubBookings{bookings: []model.Booking{
				{ID: "b1", VenueID: "venue-9", Date: future, Status: "confirmed"},
			}},
			wantExisting: true,
		},
		{
			name: "cancelled booking ignored",
			bookings: &stubBookings{bookings: []model.Booking{
				{ID: "b1", VenueID: "venue-9", Date: future, Status: "cancelled"},
			}},
			wantExisting: false,
		},
		{
			name: "booking at another venue ignored",
			bookings: &stubBookings{bookings: []model.Booking{
				{ID: "b1", VenueID: "other", Date: future, Status: "confirmed"},
			}},
			wantExisting: false,
		},
		{
			name: "past booking ignored",
			bookings: &stubBookings{bookings: []model.Booking{
				{ID: "b1", VenueID: "venue-9", Date: time.Now().Add(-time.Hour), Status: "confirmed"},
			}},
			wantExisting: false,
		},
		{
			name:         "lookup failure degrades to generic prompt",
			bookings:     &stubBookings{err: errors.New("collaborator down")},
			wantExisting: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(tt.bookings, logger.NewNop())

			text, shouldSend := g.Respond(context.Background(), intent.BookingInquiry,
				userMessage("I want to book a table"), newTestContext(), testThread())

			require.True(t, shouldSend)
			require.NotEmpty(t, text)
			assert.Equal(t, 1, tt.bookings.calls)
			if tt.wantExisting {
				assert.Contains(t, text, "already have a booking")
			} else {
				assert.Contains(t, text, "What date and party size")
			}
		})
	}
}

func TestRespondBookingInquiryNilService(t *testing.T) {
	g := NewGenerator(nil, logger.NewNop())

	text, shouldSend := g.Respond(context.Background(), intent.BookingInquiry,
		userMessage("book me in"), newTestContext(), testThread())

	require.True(t, shouldSend)
	assert.Contains(t, text, "Velvet Room")
}

func TestRespondTableAvailability(t *testing.T) {
	g := NewGenerator(nil, logger.NewNop())

	t.Run("venue known", func(t *testing.T) {
		text, shouldSend := g.Respond(context.Background(), intent.TableAvailability,
			userMessage("any tables?"), newTestContext(), testThread())
		require.True(t, shouldSend)
		assert.Contains(t, text, "Velvet Room")
	})

	t.Run("venue unknown asks for one", func(t *testing.T) {
		thread := testThread()
		thread.VenueID = ""
		thread.VenueName = ""

		text, shouldSend := g.Respond(context.Background(), intent.TableAvailability,
			userMessage("any tables?"), newTestContext(), thread)
		require.True(t, shouldSend)
		assert.Contains(t, text, "Which venue")
	})
}

func TestRespondWaitTimeBuckets(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{
			name: "weekend late night",
			at:   time.Date(2026, 8, 29, 23, 30, 0, 0, time.UTC), // Saturday
			want: "45-90",
		},
		{
			name: "sunday early morning counts as weekend spillover",
			at:   time.Date(2026, 8, 30, 1, 0, 0, 0, time.UTC), // Sunday 01:00
			want: "45-90",
		},
		{
			name: "weekday late night",
			at:   time.Date(2026, 8, 25, 23, 30, 0, 0, time.UTC), // Tuesday
			want: "20-40",
		},
		{
			name: "early evening",
			at:   time.Date(2026, 8, 25, 19, 0, 0, 0, time.UTC),
			want: "10-20",
		},
		{
			name: "daytime",
			at:   time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC),
			want: "No wait expected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(nil, logger.NewNop())
			g.now = func() time.Time { return tt.at }

			text, shouldSend := g.Respond(context.Background(), intent.WaitTimeQuestions,
				userMessage("how long is the wait"), newTestContext(), testThread())

			require.True(t, shouldSend)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestRespondFixedIntents(t *testing.T) {
	g := NewGenerator(nil, logger.NewNop())

	for _, in := range []intent.Intent{
		intent.PriceQuestions,
		intent.ConciergeRecommendations,
		intent.ReservationChanges,
		intent.VenueRecommendation,
	} {
		text, shouldSend := g.Respond(context.Background(), in,
			userMessage("question"), newTestContext(), testThread())
		require.True(t, shouldSend, "intent %s", in)
		require.NotEmpty(t, text, "intent %s", in)
	}
}

func TestRespondGeneralHelpVariants(t *testing.T) {
	g := NewGenerator(nil, logger.NewNop())
	g.randInt = func(int) int { return 2 }

	text, shouldSend := g.Respond(context.Background(), intent.GeneralHelp,
		userMessage("hi there"), newTestContext(), testThread())

	require.True(t, shouldSend)
	assert.Equal(t, greetings[2], text)
}

func TestRespondVenueRecommendationUsesPreferences(t *testing.T) {
	g := NewGenerator(nil, logger.NewNop())
	cc := newTestContext()
	cc.Preferences.VenueTypes = []string{"rooftop lounge"}

	text, shouldSend := g.Respond(context.Background(), intent.VenueRecommendation,
		userMessage("where should I go"), cc, testThread())

	require.True(t, shouldSend)
	assert.Contains(t, text, "rooftop lounge")
}
