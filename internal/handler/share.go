package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/doorlist/concierge-core/internal/share"
)

// ShareRequest is the request to build a WhatsApp share link.
type ShareRequest struct {
	Phone        string    `json:"phone"`
	BookingID    string    `json:"booking_id"`
	VenueName    string    `json:"venue_name"`
	Date         time.Time `json:"date"`
	PartySize    int       `json:"party_size"`
	TableName    string    `json:"table_name,omitempty"`
	PromoterCode string    `json:"promoter_code,omitempty"`
	GuestName    string    `json:"guest_name,omitempty"`
}

// ShareResponse carries the deep link and the flattened metadata.
type ShareResponse struct {
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata"`
}

// ShareHandler builds outbound deep links. Stateless.
type ShareHandler struct{}

// NewShareHandler creates a new share handler.
func NewShareHandler() *ShareHandler {
	return &ShareHandler{}
}

// WhatsApp handles POST /api/v1/share/whatsapp
func (h *ShareHandler) WhatsApp(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}
	if req.BookingID == "" || req.VenueName == "" {
		writeError(w, http.StatusBadRequest, "booking_id and venue_name are required")
		return
	}

	sc := share.Context{
		BookingID:    req.BookingID,
		VenueName:    req.VenueName,
		Date:         req.Date,
		PartySize:    req.PartySize,
		TableName:    req.TableName,
		PromoterCode: req.PromoterCode,
		GuestName:    req.GuestName,
	}

	writeJSON(w, http.StatusOK, &ShareResponse{
		URL:      share.WhatsAppLink(req.Phone, sc),
		Metadata: sc.Metadata(),
	})
}
