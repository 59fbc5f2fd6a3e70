package model

import (
	"time"
)

// SenderRole represents the role of a message sender.
type SenderRole string

const (
	RoleUser     SenderRole = "user"
	RoleHost     SenderRole = "host"
	RolePromoter SenderRole = "promoter"
	RoleSystem   SenderRole = "system"
)

// MessageType represents the kind of content a message carries.
type MessageType string

const (
	MessageTypeText          MessageType = "text"
	MessageTypeImage         MessageType = "image"
	MessageTypeBookingUpdate MessageType = "booking_update"
	MessageTypeSystem        MessageType = "system"
)

// ConciergeSenderID is the synthetic sender id used for generated replies.
const ConciergeSenderID = "ai_concierge"

// MetadataKeyGenerated marks a message as machine-generated. The value is the
// id of the user message the reply was produced for.
const MetadataKeyGenerated = "generated_for"

// Message is a single unit of conversation content. Content and sender
// fields are immutable once appended; only IsRead may change.
type Message struct {
	ID         string            `json:"id"`
	ThreadID   string            `json:"thread_id"`
	SenderID   string            `json:"sender_id"`
	SenderName string            `json:"sender_name"`
	SenderRole SenderRole        `json:"sender_role"`
	Content    string            `json:"content"`
	Type       MessageType       `json:"type"`
	Timestamp  time.Time         `json:"timestamp"`
	IsRead     bool              `json:"is_read"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	// Seq is the store-assigned insertion order, used to break timestamp
	// ties. Populated on read.
	Seq uint64 `json:"seq,omitempty"`
}

// Generated reports whether the message was produced by the concierge
// pipeline rather than a human.
func (m *Message) Generated() bool {
	_, ok := m.Metadata[MetadataKeyGenerated]
	return ok
}

// SendMessageRequest is the request to send a new message.
type SendMessageRequest struct {
	Content string      `json:"content"`
	Type    MessageType `json:"type,omitempty"`
}

// SendMessageResponse is the response after sending a message.
type SendMessageResponse struct {
	Message *Message `json:"message"`
	Reply   *Message `json:"reply,omitempty"`
}

// ListMessagesResponse is the response for listing thread messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}

// MarkReadResponse is the response after marking a thread read.
type MarkReadResponse struct {
	Marked int `json:"marked"`
}
