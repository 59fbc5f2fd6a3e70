// Package intent classifies free-text chat messages into a closed set of
// concierge intents using an ordered keyword cascade.
package intent

import (
	"strings"
)

// Intent is a closed-set label describing the purpose of a user message.
type Intent string

const (
	BookingInquiry           Intent = "booking_inquiry"
	TableAvailability        Intent = "table_availability"
	PriceQuestions           Intent = "price_questions"
	VenueRecommendation      Intent = "venue_recommendation"
	WaitTimeQuestions        Intent = "wait_time_questions"
	ReservationChanges       Intent = "reservation_changes"
	ConciergeRecommendations Intent = "concierge_recommendations"
	GeneralHelp              Intent = "general_help"
)

// rule pairs an intent with its trigger keywords. Rules are evaluated in
// order and the first match wins; overlapping keywords between intents
// resolve by position in the cascade, not by best match. Do not reorder.
type rule struct {
	intent    Intent
	keywords  []string
	venueFree bool // only matches when the thread has no established venue
}

var cascade = []rule{
	{intent: BookingInquiry, keywords: []string{
		"book", "booking", "reservation for", "make a reservation", "get a table for",
	}},
	{intent: TableAvailability, keywords: []string{
		"table", "availability", "available", "seats", "seating", "any space",
	}},
	{intent: PriceQuestions, keywords: []string{
		"price", "cost", "cover", "charge", "how much", "expensive", "minimum spend",
	}},
	{intent: WaitTimeQuestions, keywords: []string{
		"wait", "how long", "queue", "line", "busy right now",
	}},
	{intent: ConciergeRecommendations, keywords: []string{
		"recommend", "suggest", "what should", "plan my night", "vip", "bottle service",
	}},
	{intent: ReservationChanges, keywords: []string{
		"cancel", "change", "modify", "reschedule", "move my",
	}},
	{intent: VenueRecommendation, venueFree: true, keywords: []string{
		"club", "bar", "lounge", "venue", "place to go", "nightlife", "where to go",
	}},
}

// Classify maps text to an intent. Matching is case-insensitive substring
// containment; hasVenue gates the venue_recommendation rule, which is only
// reachable when the thread carries no established venue. Classification
// never fails: general_help is the fallback.
func Classify(text string, hasVenue bool) Intent {
	lower := strings.ToLower(text)

	for _, r := range cascade {
		if r.venueFree && hasVenue {
			continue
		}
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.intent
			}
		}
	}
	return GeneralHelp
}
