// Package booking provides read-only access to the external booking
// collaborator.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/doorlist/concierge-core/internal/model"
)

// Service looks up a user's bookings. Callers must tolerate failures:
// booking data only enriches replies and is never required for the chat flow.
type Service interface {
	FetchUserBookings(ctx context.Context, userID string) ([]model.Booking, error)
}

// DefaultSubject is the request subject served by the booking service.
const DefaultSubject = "bookings.lookup"

type lookupRequest struct {
	UserID string `json:"user_id"`
}

type lookupResponse struct {
	Bookings []model.Booking `json:"bookings"`
	Error    string          `json:"error,omitempty"`
}

// NATSClient is a Service backed by NATS request/reply.
type NATSClient struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
}

// NewNATSClient creates a booking lookup client over an existing connection.
func NewNATSClient(conn *nats.Conn, subject string, timeout time.Duration) *NATSClient {
	if subject == "" {
		subject = DefaultSubject
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &NATSClient{conn: conn, subject: subject, timeout: timeout}
}

// FetchUserBookings implements Service.
func (c *NATSClient) FetchUserBookings(ctx context.Context, userID string) ([]model.Booking, error) {
	data, err := json.Marshal(lookupRequest{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal booking lookup: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.conn.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		return nil, fmt.Errorf("booking lookup request failed: %w", err)
	}

	var resp lookupResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse booking lookup response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("booking lookup rejected: %s", resp.Error)
	}
	return resp.Bookings, nil
}
