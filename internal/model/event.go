package model

import (
	"time"
)

// ChangeTopic identifies which store a change notification refers to.
type ChangeTopic string

const (
	TopicMessages ChangeTopic = "messages"
	TopicThreads  ChangeTopic = "threads"
)

// ChangeEvent signals that rows under a key have changed. Delivery is
// at-least-once and may coalesce or reorder rapid successive changes, so the
// event carries no row payload: subscribers must re-fetch the affected rows
// from the store.
type ChangeEvent struct {
	Topic ChangeTopic `json:"topic"`
	// Key is the thread id for TopicMessages and the participant id for
	// TopicThreads.
	Key       string    `json:"key"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Booking is the shape this core consumes from the external booking
// collaborator. Read-only here.
type Booking struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	VenueID   string    `json:"venue_id"`
	VenueName string    `json:"venue_name,omitempty"`
	Date      time.Time `json:"date"`
	PartySize int       `json:"party_size,omitempty"`
	Status    string    `json:"status"`
}

// Cancelled reports whether the booking no longer counts as upcoming.
func (b *Booking) Cancelled() bool {
	return b.Status == "cancelled" || b.Status == "canceled"
}
