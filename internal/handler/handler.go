// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/apperror"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/service"
)

// EventHandler holds all HTTP handlers for the ticketing API.
type EventHandler struct {
	svc *service.TicketService
	log *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.TicketService, log *zap.Logger) *EventHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventHandler{svc: svc, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAppError(w http.ResponseWriter, appErr *apperror.AppError) {
	writeJSON(w, appErr.StatusCode, model.ErrorResponse{Error: model.ErrorBody{
		Code:    string(appErr.Code),
		Message: appErr.Message,
	}})
}

// writeError renders business outcomes with their own status; anything else
// is logged and hidden behind a 500.
func (h *EventHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.From(err)
	if appErr.Code == apperror.CodeInternal {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeAppError(w, appErr)
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (h *EventHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		writeAppError(w, apperror.Validation("invalid request body: "+err.Error()))
		return false
	}
	return true
}

func ticketParam(r *http.Request) (model.TicketID, error) {
	return model.ParseTicketID(chi.URLParam(r, "ticketID"))
}

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if !h.decode(w, r, &req) {
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), identityFrom(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PUT /events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if !h.decode(w, r, &req) {
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), identityFrom(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// SetOpen handles POST /events/{id}/open
func (h *EventHandler) SetOpen(w http.ResponseWriter, r *http.Request) {
	var req model.SetOpenRequest
	if !h.decode(w, r, &req) {
		return
	}

	event, err := h.svc.SetOpen(r.Context(), identityFrom(r), chi.URLParam(r, "id"), req.IsOpen)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{id}
// Tickets of a deleted event stay readable but no longer count anywhere.
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEvent(r.Context(), identityFrom(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ─── Registration ─────────────────────────────────────────────────────────────

// Register handles POST /events/{id}/register
// Performs a concurrency-safe individual registration for the caller.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	reg, err := h.svc.RegisterIndividual(r.Context(), chi.URLParam(r, "id"), identityFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

// CreateTeam handles POST /events/{id}/teams
// The caller becomes the leader; the response carries the shareable code.
func (h *EventHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTeamRequest
	if !h.decode(w, r, &req) {
		return
	}

	reg, err := h.svc.CreateTeam(r.Context(), chi.URLParam(r, "id"), identityFrom(r), req.TeamName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

// JoinTeam handles POST /events/{id}/teams/join
func (h *EventHandler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	var req model.JoinTeamRequest
	if !h.decode(w, r, &req) {
		return
	}

	reg, err := h.svc.JoinTeam(r.Context(), chi.URLParam(r, "id"), identityFrom(r), req.TeamCode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

// ListRegistrations handles GET /events/{id}/registrations
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.Participants(r.Context(), identityFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if regs == nil {
		regs = []model.Registration{}
	}

	writeJSON(w, http.StatusOK, regs)
}

// ListEmails handles GET /events/{id}/emails
func (h *EventHandler) ListEmails(w http.ResponseWriter, r *http.Request) {
	logs, err := h.svc.EmailLog(r.Context(), identityFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if logs == nil {
		logs = []model.EmailLog{}
	}

	writeJSON(w, http.StatusOK, logs)
}

// ─── Tickets ──────────────────────────────────────────────────────────────────

// CheckIn handles POST /checkin
// Every scan outcome is a 200; only infrastructure failures are errors.
func (h *EventHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req model.CheckInRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.svc.CheckInPayload(r.Context(), req.Payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetTicket handles GET /tickets/{ticketID}
func (h *EventHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := ticketParam(r)
	if err != nil {
		writeAppError(w, apperror.ErrNotFound.WithMessage("ticket not found"))
		return
	}

	reg, err := h.svc.Ticket(r.Context(), id, identityFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// CancelTicket handles DELETE /tickets/{ticketID}
func (h *EventHandler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	id, err := ticketParam(r)
	if err != nil {
		writeAppError(w, apperror.ErrNotFound.WithMessage("ticket not found"))
		return
	}

	if err := h.svc.Cancel(r.Context(), id, identityFrom(r)); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ─── Reviews & leaderboard ────────────────────────────────────────────────────

// SubmitReview handles POST /events/{id}/reviews
func (h *EventHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req model.ReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	review, err := h.svc.SubmitReview(r.Context(), chi.URLParam(r, "id"), identityFrom(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, review)
}

// ListReviews handles GET /events/{id}/reviews
func (h *EventHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.svc.Reviews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if reviews == nil {
		reviews = []model.Review{}
	}

	writeJSON(w, http.StatusOK, reviews)
}

// Leaderboard handles GET /leaderboard?limit=N
func (h *EventHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeAppError(w, apperror.Validation("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := h.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}

	writeJSON(w, http.StatusOK, entries)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
