package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		hasVenue bool
		want     Intent
	}{
		{
			name:     "booking request",
			text:     "I want to book a table for Friday",
			hasVenue: true,
			want:     BookingInquiry,
		},
		{
			name:     "cover charge",
			text:     "what's the cover charge tonight",
			hasVenue: true,
			want:     PriceQuestions,
		},
		{
			name:     "wait time",
			text:     "how long is the wait",
			hasVenue: true,
			want:     WaitTimeQuestions,
		},
		{
			name:     "cancel reservation",
			text:     "can I cancel my reservation",
			hasVenue: true,
			want:     ReservationChanges,
		},
		{
			name:     "plain greeting falls through",
			text:     "hi there",
			hasVenue: false,
			want:     GeneralHelp,
		},
		{
			name:     "venue keyword without established venue",
			text:     "hi there, any good club around?",
			hasVenue: false,
			want:     VenueRecommendation,
		},
		{
			name:     "venue keyword with established venue falls through",
			text:     "any good club around?",
			hasVenue: true,
			want:     GeneralHelp,
		},
		{
			name:     "table availability",
			text:     "do you have any tables available tonight",
			hasVenue: true,
			want:     TableAvailability,
		},
		{
			name:     "recommendation request",
			text:     "can you recommend something for tonight",
			hasVenue: true,
			want:     ConciergeRecommendations,
		},
		{
			name:     "case insensitive",
			text:     "HOW MUCH is entry",
			hasVenue: true,
			want:     PriceQuestions,
		},
		{
			name:     "empty text",
			text:     "",
			hasVenue: false,
			want:     GeneralHelp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text, tt.hasVenue))
		})
	}
}

// Overlapping keywords must resolve by cascade position, not best match.
func TestClassifyCascadePriority(t *testing.T) {
	// "book" and "table" both present: booking_inquiry wins over
	// table_availability.
	assert.Equal(t, BookingInquiry, Classify("book me a table", true))

	// "wait" and "change" both present: wait_time_questions sits above
	// reservation_changes in the cascade.
	assert.Equal(t, WaitTimeQuestions, Classify("if I change outfits will the wait be shorter", true))

	// "how long" triggers wait_time even when a recommendation word follows.
	assert.Equal(t, WaitTimeQuestions, Classify("how long until you can recommend a slot", true))
}

func TestClassifyIsDeterministic(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.Equal(t, BookingInquiry, Classify("I want to book a table for Friday", true))
	}
}
