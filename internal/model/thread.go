// Package model defines data structures for the concierge messaging core.
package model

import (
	"time"
)

// ThreadType categorizes who sits on the other side of a conversation.
type ThreadType string

const (
	ThreadTypeConcierge ThreadType = "concierge"
	ThreadTypePromoter  ThreadType = "promoter"
	ThreadTypeSupport   ThreadType = "support"
)

// ThreadStatus represents the lifecycle state of a thread.
type ThreadStatus string

const (
	ThreadStatusActive   ThreadStatus = "active"
	ThreadStatusClosed   ThreadStatus = "closed"
	ThreadStatusArchived ThreadStatus = "archived"
)

// Thread represents a conversation between a user and a venue, host,
// promoter, or support entity. Threads are never hard-deleted; archival is a
// status change.
type Thread struct {
	ID                 string       `json:"id"`
	ParticipantIDs     []string     `json:"participant_ids"`
	VenueID            string       `json:"venue_id,omitempty"`
	VenueName          string       `json:"venue_name,omitempty"`
	Type               ThreadType   `json:"type"`
	BookingID          string       `json:"booking_id,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
	LastMessagePreview string       `json:"last_message_preview,omitempty"`
	UnreadCount        int          `json:"unread_count"`
	Status             ThreadStatus `json:"status"`
}

// HasParticipant reports whether id is a participant of the thread.
// Participant order is not significant for matching.
func (t *Thread) HasParticipant(id string) bool {
	for _, p := range t.ParticipantIDs {
		if p == id {
			return true
		}
	}
	return false
}

// OpenThreadRequest is the request to open (or resume) a concierge thread.
type OpenThreadRequest struct {
	VenueID   string `json:"venue_id"`
	VenueName string `json:"venue_name"`
	BookingID string `json:"booking_id,omitempty"`
}

// OpenThreadResponse is the response after opening a thread.
type OpenThreadResponse struct {
	ThreadID string  `json:"thread_id"`
	Thread   *Thread `json:"thread,omitempty"`
}

// ListThreadsResponse is the response for listing a user's threads.
type ListThreadsResponse struct {
	Threads []Thread `json:"threads"`
	Total   int      `json:"total"`
}
