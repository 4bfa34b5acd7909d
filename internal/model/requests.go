package model

import "time"

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	StartsAt          time.Time         `json:"starts_at"`
	Location          string            `json:"location"`
	Category          string            `json:"category"`
	TotalTickets      int               `json:"total_tickets"`
	ParticipationType ParticipationType `json:"participation_type"`
	TeamSize          int               `json:"team_size"`
	IsRestricted      bool              `json:"is_restricted"`
	IsOpen            *bool             `json:"is_open"`
}

// UpdateEventRequest edits an event. Nil fields are left unchanged; the
// sold counter is never editable.
type UpdateEventRequest struct {
	Title             *string            `json:"title"`
	Description       *string            `json:"description"`
	StartsAt          *time.Time         `json:"starts_at"`
	Location          *string            `json:"location"`
	Category          *string            `json:"category"`
	TotalTickets      *int               `json:"total_tickets"`
	ParticipationType *ParticipationType `json:"participation_type"`
	TeamSize          *int               `json:"team_size"`
	IsRestricted      *bool              `json:"is_restricted"`
	IsOpen            *bool              `json:"is_open"`
}

// SetOpenRequest toggles manual registration.
type SetOpenRequest struct {
	IsOpen bool `json:"is_open"`
}

// CreateTeamRequest is the payload for creating a team.
type CreateTeamRequest struct {
	TeamName string `json:"team_name"`
}

// JoinTeamRequest is the payload for joining a team by code.
type JoinTeamRequest struct {
	TeamCode string `json:"team_code"`
}

// CheckInRequest carries the scanned QR text.
type CheckInRequest struct {
	Payload string `json:"payload"`
}

// ReviewRequest is the payload for rating an event.
type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody names the business outcome so clients can render it directly.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
