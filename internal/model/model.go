// Package model defines the core domain types for the campus ticketing system.
package model

import (
	"fmt"
	"strings"
	"time"
)

// ParticipationType controls which registration modes an event accepts.
type ParticipationType string

const (
	ParticipationIndividual ParticipationType = "individual"
	ParticipationTeam       ParticipationType = "team"
	ParticipationBoth       ParticipationType = "both"
)

// Valid reports whether p is a known participation type.
func (p ParticipationType) Valid() bool {
	switch p {
	case ParticipationIndividual, ParticipationTeam, ParticipationBoth:
		return true
	}
	return false
}

// Event represents a bookable event created by an organizer.
type Event struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	StartsAt          time.Time         `json:"starts_at"`
	Location          string            `json:"location"`
	Category          string            `json:"category"`
	OrganizerID       string            `json:"organizer_id"`
	TotalTickets      int               `json:"total_tickets"`
	TicketsSold       int               `json:"tickets_sold"`
	ParticipationType ParticipationType `json:"participation_type"`
	TeamSize          int               `json:"team_size,omitempty"`
	IsRestricted      bool              `json:"is_restricted"`
	IsOpen            bool              `json:"is_open"`
	RatingAverage     float64           `json:"rating_average"`
	RatingCount       int               `json:"rating_count"`
	CreatedAt         time.Time         `json:"created_at"`
}

// Remaining returns the number of available tickets.
func (e *Event) Remaining() int {
	return e.TotalTickets - e.TicketsSold
}

// IsFull returns true when no tickets remain.
func (e *Event) IsFull() bool {
	return e.TicketsSold >= e.TotalTickets
}

// AllowsIndividual reports whether solo registrations are accepted.
func (e *Event) AllowsIndividual() bool {
	return e.ParticipationType == ParticipationIndividual || e.ParticipationType == ParticipationBoth
}

// AllowsTeams reports whether team registrations are accepted.
func (e *Event) AllowsTeams() bool {
	return e.ParticipationType == ParticipationTeam || e.ParticipationType == ParticipationBoth
}

// MaxTeamSize returns the configured team size, or fallback when unset.
func (e *Event) MaxTeamSize(fallback int) int {
	if e.TeamSize > 0 {
		return e.TeamSize
	}
	return fallback
}

// RegistrationType discriminates the registration variants.
type RegistrationType string

const (
	TypeIndividual RegistrationType = "individual"
	TypeTeamLeader RegistrationType = "team_leader"
	TypeTeamMember RegistrationType = "team_member"
)

// Status is the check-in lifecycle state of a registration.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusAttended  Status = "attended"
	StatusCancelled Status = "cancelled"
)

// CanTransition reports whether a registration may move from s to next.
// Attended and cancelled are terminal.
func (s Status) CanTransition(next Status) bool {
	return s == StatusConfirmed && (next == StatusAttended || next == StatusCancelled)
}

// TeamInfo is carried by team registrations. Size and MaxSize are only
// meaningful on the leader's record.
type TeamInfo struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Size    int    `json:"size,omitempty"`
	MaxSize int    `json:"max_size,omitempty"`
}

// Registration is a ticket: at most one exists per (event, user).
type Registration struct {
	EventID     string           `json:"event_id"`
	UserID      string           `json:"user_id"`
	UserName    string           `json:"user_name"`
	UserEmail   string           `json:"user_email"`
	Type        RegistrationType `json:"type"`
	Status      Status           `json:"status"`
	Team        *TeamInfo        `json:"team,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CheckInTime *time.Time       `json:"check_in_time,omitempty"`
	CancelledAt *time.Time       `json:"cancelled_at,omitempty"`
}

// TicketID returns the composite key of the registration.
func (r *Registration) TicketID() TicketID {
	return TicketID{EventID: r.EventID, UserID: r.UserID}
}

// Validate checks that the fields required by the registration's type are
// present and that no foreign fields are set.
func (r *Registration) Validate() error {
	if r.EventID == "" || r.UserID == "" {
		return fmt.Errorf("registration requires event and user ids")
	}
	switch r.Status {
	case StatusConfirmed, StatusAttended, StatusCancelled:
	default:
		return fmt.Errorf("unknown registration status %q", r.Status)
	}

	switch r.Type {
	case TypeIndividual:
		if r.Team != nil {
			return fmt.Errorf("individual registration cannot carry a team")
		}
	case TypeTeamLeader:
		if r.Team == nil || r.Team.Code == "" || r.Team.Name == "" {
			return fmt.Errorf("team leader registration requires team code and name")
		}
		if r.Team.Size < 1 || r.Team.Size > r.Team.MaxSize {
			return fmt.Errorf("team size %d outside 1..%d", r.Team.Size, r.Team.MaxSize)
		}
	case TypeTeamMember:
		if r.Team == nil || r.Team.Code == "" || r.Team.Name == "" {
			return fmt.Errorf("team member registration requires team code and name")
		}
		if r.Team.Size != 0 || r.Team.MaxSize != 0 {
			return fmt.Errorf("team member registration cannot carry team counters")
		}
	default:
		return fmt.Errorf("unknown registration type %q", r.Type)
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (r *Registration) Clone() *Registration {
	c := *r
	if r.Team != nil {
		t := *r.Team
		c.Team = &t
	}
	if r.CheckInTime != nil {
		t := *r.CheckInTime
		c.CheckInTime = &t
	}
	if r.CancelledAt != nil {
		t := *r.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}

// Review is a single rating left by a user for an event.
type Review struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Role is the caller's privilege level as asserted by the identity provider.
type Role string

const (
	RoleStudent   Role = "student"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
}

// Domain returns the lower-cased domain part of the caller's email address.
func (i Identity) Domain() string {
	at := strings.LastIndex(i.Email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(i.Email[at+1:])
}

// IsStaff reports whether the caller may administer events and scan tickets.
func (i Identity) IsStaff() bool {
	return i.Role == RoleAdmin || i.Role == RoleOrganizer
}

// LeaderboardEntry is one ranked row of the attendance leaderboard.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Attended int    `json:"attended"`
	Points   int    `json:"points"`
}

// EmailStatus is the delivery state of a notification email.
type EmailStatus string

const (
	EmailStatusSent   EmailStatus = "sent"
	EmailStatusFailed EmailStatus = "failed"
)

// EmailLog records one delivery attempt of a ticket email.
type EmailLog struct {
	ID             string      `json:"id"`
	EventID        string      `json:"event_id"`
	UserID         string      `json:"user_id"`
	RecipientEmail string      `json:"recipient_email"`
	Subject        string      `json:"subject"`
	Status         EmailStatus `json:"status"`
	Attempt        int         `json:"attempt"`
	ErrorMessage   string      `json:"error_message,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}
