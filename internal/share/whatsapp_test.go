package share

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testShareContext() Context {
	return Context{
		BookingID:    "bk-42",
		VenueName:    "Velvet Room",
		Date:         time.Date(2026, 9, 4, 22, 30, 0, 0, time.UTC),
		PartySize:    4,
		TableName:    "VIP 3",
		PromoterCode: "NITE10",
		GuestName:    "Sam",
	}
}

func TestWhatsAppLink(t *testing.T) {
	link := WhatsAppLink("+1 (555) 010-9999", testShareContext())

	require.True(t, strings.HasPrefix(link, "https://wa.me/15550109999?text="), link)

	u, err := url.Parse(link)
	require.NoError(t, err)
	body := u.Query().Get("text")
	assert.Contains(t, body, "Hey Sam!")
	assert.Contains(t, body, "Velvet Room")
	assert.Contains(t, body, "party of 4")
	assert.Contains(t, body, "VIP 3")
	assert.Contains(t, body, "NITE10")
	assert.Contains(t, body, "bk-42")
}

func TestWhatsAppLinkMinimal(t *testing.T) {
	c := Context{
		BookingID: "bk-1",
		VenueName: "Bar Nine",
		Date:      time.Date(2026, 9, 4, 21, 0, 0, 0, time.UTC),
		PartySize: 2,
	}

	link := WhatsAppLink("5550001111", c)
	u, err := url.Parse(link)
	require.NoError(t, err)

	body := u.Query().Get("text")
	assert.NotContains(t, body, "Table:")
	assert.NotContains(t, body, "code")
	assert.NotContains(t, body, "Hey")
}

func TestMetadata(t *testing.T) {
	m := testShareContext().Metadata()

	assert.Equal(t, "bk-42", m["booking_id"])
	assert.Equal(t, "Velvet Room", m["venue_name"])
	assert.Equal(t, "4", m["party_size"])
	assert.Equal(t, "VIP 3", m["table_name"])
	assert.Equal(t, "NITE10", m["promoter_code"])
	assert.Equal(t, "Sam", m["guest_name"])
	assert.Equal(t, "2026-09-04T22:30:00Z", m["date"])
}

func TestMetadataOmitsEmptyOptionals(t *testing.T) {
	m := Context{BookingID: "bk-1", VenueName: "Bar Nine", PartySize: 2}.Metadata()

	assert.NotContains(t, m, "table_name")
	assert.NotContains(t, m, "promoter_code")
	assert.NotContains(t, m, "guest_name")
}
