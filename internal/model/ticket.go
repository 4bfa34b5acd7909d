package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const ticketSeparator = "_"

// TicketID is the composite (event, user) key of a registration. Its string
// form is what the QR code carries.
type TicketID struct {
	EventID string
	UserID  string
}

func (t TicketID) String() string {
	return t.EventID + ticketSeparator + t.UserID
}

// ParseTicketID splits "<eventID>_<userID>". Event IDs never contain the
// separator, so everything after the first one belongs to the user ID.
func ParseTicketID(s string) (TicketID, error) {
	eventID, userID, ok := strings.Cut(strings.TrimSpace(s), ticketSeparator)
	if !ok || eventID == "" || userID == "" {
		return TicketID{}, fmt.Errorf("malformed ticket id %q", s)
	}
	return TicketID{EventID: eventID, UserID: userID}, nil
}

// QRPayload is encoded into the QR image attached to the ticket email.
type QRPayload struct {
	TicketID string `json:"ticket_id"`
	EventID  string `json:"event_id"`
	UserID   string `json:"user_id"`
}

// NewQRPayload builds the payload for a ticket.
func NewQRPayload(id TicketID) QRPayload {
	return QRPayload{TicketID: id.String(), EventID: id.EventID, UserID: id.UserID}
}

// Encode returns the JSON string that goes into the QR code.
func (p QRPayload) Encode() string {
	b, _ := json.Marshal(p)
	return string(b)
}

// ParseQRPayload resolves scanned text to a ticket ID. It accepts the JSON
// payload produced by Encode as well as a bare ticket ID string.
func ParseQRPayload(raw string) (TicketID, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return ParseTicketID(raw)
	}

	var p QRPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return TicketID{}, fmt.Errorf("decode qr payload: %w", err)
	}
	if p.EventID != "" && p.UserID != "" {
		return TicketID{EventID: p.EventID, UserID: p.UserID}, nil
	}
	return ParseTicketID(p.TicketID)
}

// CheckInOutcome is the result shown to the scanner operator.
type CheckInOutcome string

const (
	OutcomeGranted     CheckInOutcome = "GRANTED"
	OutcomeAlreadyUsed CheckInOutcome = "ALREADY_USED"
	OutcomeInvalid     CheckInOutcome = "INVALID"
	OutcomeCancelled   CheckInOutcome = "CANCELLED"
)

// CheckInResult carries the outcome and, when the ticket exists, its record.
type CheckInResult struct {
	Outcome      CheckInOutcome `json:"outcome"`
	Registration *Registration  `json:"registration,omitempty"`
}

// TicketConfirmed is emitted after a registration commits and is consumed by
// the notification worker.
type TicketConfirmed struct {
	TicketID   string           `json:"ticket_id"`
	EventID    string           `json:"event_id"`
	EventTitle string           `json:"event_title"`
	StartsAt   time.Time        `json:"starts_at"`
	Location   string           `json:"location"`
	UserID     string           `json:"user_id"`
	UserName   string           `json:"user_name"`
	UserEmail  string           `json:"user_email"`
	Type       RegistrationType `json:"type"`
	TeamName   string           `json:"team_name,omitempty"`
	TeamCode   string           `json:"team_code,omitempty"`
}

// NewTicketConfirmed builds the outbound message for a committed registration.
func NewTicketConfirmed(e *Event, r *Registration) TicketConfirmed {
	msg := TicketConfirmed{
		TicketID:   r.TicketID().String(),
		EventID:    e.ID,
		EventTitle: e.Title,
		StartsAt:   e.StartsAt,
		Location:   e.Location,
		UserID:     r.UserID,
		UserName:   r.UserName,
		UserEmail:  r.UserEmail,
		Type:       r.Type,
	}
	if r.Team != nil {
		msg.TeamName = r.Team.Name
		msg.TeamCode = r.Team.Code
	}
	return msg
}
