package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/doorlist/concierge-core/internal/model"
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateThreadID validates a thread ID.
func ValidateThreadID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid thread ID format")
	}
	return nil
}

// ValidateMessageType validates an optional message type.
func ValidateMessageType(t model.MessageType) error {
	switch t {
	case "", model.MessageTypeText, model.MessageTypeImage,
		model.MessageTypeBookingUpdate, model.MessageTypeSystem:
		return nil
	}
	return errors.New("invalid message type")
}

// ValidateVenueID validates a venue ID.
func ValidateVenueID(id string) error {
	if len(id) == 0 {
		return errors.New("venue ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("venue ID exceeds maximum length")
	}
	return nil
}

// ValidateVenueName validates a venue display name.
func ValidateVenueName(name string) error {
	if len(name) > 256 {
		return errors.New("venue name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("venue name must be valid UTF-8")
	}
	return nil
}
