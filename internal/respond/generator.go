// Package respond turns a classified user message into a concierge reply.
package respond

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/doorlist/concierge-core/internal/booking"
	"github.com/doorlist/concierge-core/internal/convctx"
	"github.com/doorlist/concierge-core/internal/intent"
	"github.com/doorlist/concierge-core/internal/model"
	"github.com/doorlist/concierge-core/pkg/logger"
)

// Generator maps (intent, message, conversation context, thread) to a reply
// and a send decision. shouldSend is true for every intent today; callers
// must still honor false and never persist a suppressed reply.
type Generator struct {
	bookings booking.Service
	logger   *logger.Logger

	// Injected for tests.
	now     func() time.Time
	randInt func(n int) int
}

// NewGenerator creates a response generator. bookings may be nil, in which
// case booking-aware replies fall back to their generic prompts.
func NewGenerator(bookings booking.Service, log *logger.Logger) *Generator {
	return &Generator{
		bookings: bookings,
		logger:   log,
		now:      time.Now,
		randInt:  rand.Intn,
	}
}

var greetings = []string{
	"Hey! I'm your concierge. Ask me about tables, bookings, or what's on tonight.",
	"Hi there! Looking for a table, prices, or a plan for tonight? I've got you.",
	"Welcome! I can help with reservations, availability, and recommendations.",
	"Hello! Tell me what you're after tonight and I'll sort it out.",
}

// Respond produces the reply text and the send decision for a classified
// user message. It never returns an error: any failure along the way
// degrades to a generic prompt.
func (g *Generator) Respond(ctx context.Context, in intent.Intent, msg *model.Message, cc *convctx.Context, thread *model.Thread) (string, bool) {
	switch in {
	case intent.BookingInquiry:
		return g.bookingInquiry(ctx, msg, cc, thread), true

	case intent.TableAvailability:
		if thread.VenueID == "" {
			return "Happy to check table availability! Which venue are you thinking of, and for what date, time, and party size?", true
		}
		return fmt.Sprintf("I can check tables at %s. What date, time, and party size should I look for?", venueLabel(thread)), true

	case intent.PriceQuestions:
		return fmt.Sprintf("Cover and table minimums at %s vary by night. General entry usually runs $20-40, and table packages start around $300. Want me to check tonight's pricing?", venueLabel(thread)), true

	case intent.WaitTimeQuestions:
		return g.waitTimeEstimate(), true

	case intent.ConciergeRecommendations:
		return "For the full experience I'd suggest arriving before 11pm, reserving a table if you're 4 or more, and letting me pre-arrange bottle service. Want me to set any of that up?", true

	case intent.ReservationChanges:
		return "To change or cancel a reservation, open it from your bookings and choose Modify, or tell me the new date and party size here and I'll pass it to the venue.", true

	case intent.VenueRecommendation:
		return g.venueRecommendation(cc), true

	default: // intent.GeneralHelp
		return greetings[g.randInt(len(greetings))], true
	}
}

// bookingInquiry consults the booking collaborator for an existing upcoming
// booking at this thread's venue. Lookup failure is never fatal: the reply
// degrades to the generic prompt.
func (g *Generator) bookingInquiry(ctx context.Context, msg *model.Message, cc *convctx.Context, thread *model.Thread) string {
	generic := fmt.Sprintf("I can book %s for you! What date and party size are you thinking?", venueLabel(thread))

	if g.bookings == nil {
		return generic
	}

	bookings, err := g.bookings.FetchUserBookings(ctx, msg.SenderID)
	if err != nil {
		g.logger.Warn("booking lookup failed, using generic prompt",
			zap.String("thread_id", thread.ID),
			zap.Error(err))
		return generic
	}

	now := g.now()
	for i := range bookings {
		b := &bookings[i]
		if b.Cancelled() || b.VenueID != thread.VenueID || !b.Date.After(now) {
			continue
		}
		cc.DiscussReservation(b.ID)
		return fmt.Sprintf("You already have a booking at %s on %s. Want me to modify it, or make an additional one?",
			venueLabel(thread), b.Date.Format("Monday, Jan 2"))
	}
	return generic
}

// waitTimeEstimate buckets the expected door wait by day-of-week and hour.
// Late night runs 22:00 through 02:59.
func (g *Generator) waitTimeEstimate() string {
	now := g.now()
	hour := now.Hour()
	weekday := now.Weekday()

	lateNight := hour >= 22 || hour < 3

	// Friday and Saturday nights, plus the early Sunday spillover.
	weekendNight := weekday == time.Friday || weekday == time.Saturday ||
		(weekday == time.Sunday && hour < 3)

	switch {
	case lateNight && weekendNight:
		return "It's peak time right now - expect around 45-90 minutes at the door. A table reservation skips the line; want me to check?"
	case lateNight:
		return "Weeknight late crowd is moderate - usually a 20-40 minute wait. I can get you on the list to speed things up."
	case hour >= 18:
		return "Early evening is quiet - expect around 10-20 minutes at most."
	default:
		return "No wait expected right now. Doors get busy after 10pm, so earlier is better."
	}
}

func (g *Generator) venueRecommendation(cc *convctx.Context) string {
	if len(cc.Preferences.VenueTypes) > 0 {
		return fmt.Sprintf("Based on what you've liked before, I'd look at a %s tonight. Want a shortlist with open tables?", cc.Preferences.VenueTypes[0])
	}
	return "Tell me the vibe you're after - rooftop lounge, high-energy club, or a quieter cocktail bar - and I'll shortlist venues with tables tonight."
}

func venueLabel(t *model.Thread) string {
	if t.VenueName != "" {
		return t.VenueName
	}
	return "the venue"
}
