// Package share builds outbound deep links for sharing booking details
// outside the chat. Stateless formatting only; not part of the live chat
// protocol.
package share

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Context carries the booking details embedded in a share link.
type Context struct {
	BookingID    string
	VenueName    string
	Date         time.Time
	PartySize    int
	TableName    string
	PromoterCode string
	GuestName    string
}

// WhatsAppLink returns a wa.me deep link for the phone number with a
// pre-filled message body describing the booking. The phone number is
// reduced to digits; a leading plus is dropped per the wa.me format.
func WhatsAppLink(phone string, c Context) string {
	return "https://wa.me/" + normalizePhone(phone) + "?text=" + url.QueryEscape(c.body())
}

// Metadata flattens the share context into a string map suitable for storage
// as message metadata.
func (c Context) Metadata() map[string]string {
	m := map[string]string{
		"booking_id": c.BookingID,
		"venue_name": c.VenueName,
		"date":       c.Date.Format(time.RFC3339),
		"party_size": strconv.Itoa(c.PartySize),
	}
	if c.TableName != "" {
		m["table_name"] = c.TableName
	}
	if c.PromoterCode != "" {
		m["promoter_code"] = c.PromoterCode
	}
	if c.GuestName != "" {
		m["guest_name"] = c.GuestName
	}
	return m
}

func (c Context) body() string {
	var b strings.Builder

	if c.GuestName != "" {
		fmt.Fprintf(&b, "Hey %s! ", c.GuestName)
	}
	fmt.Fprintf(&b, "You're on the list for %s on %s, party of %d.",
		c.VenueName, c.Date.Format("Monday, Jan 2 at 3:04 PM"), c.PartySize)
	if c.TableName != "" {
		fmt.Fprintf(&b, " Table: %s.", c.TableName)
	}
	if c.PromoterCode != "" {
		fmt.Fprintf(&b, " Mention code %s at the door.", c.PromoterCode)
	}
	fmt.Fprintf(&b, " Booking ref: %s", c.BookingID)

	return b.String()
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
