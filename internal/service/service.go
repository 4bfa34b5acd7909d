// Package service implements the ticketing core: the atomic registration,
// team, check-in, cancellation and review operations, plus the event admin
// operations and derived read models.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/apperror"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/repository"
)

const maxTotalTickets = 100_000

// Publisher receives TicketConfirmed messages after a registration commits.
type Publisher interface {
	Publish(ctx context.Context, msg model.TicketConfirmed) error
}

// Options tunes the business rules.
type Options struct {
	AllowedDomain       string
	PointsPerAttendance int
	DefaultTeamSize     int
	NotifyTimeout       time.Duration

	// Now and NewTeamCode are overridable for tests.
	Now         func() time.Time
	NewTeamCode func() (string, error)
}

func (o *Options) setDefaults() {
	o.AllowedDomain = strings.ToLower(strings.TrimPrefix(o.AllowedDomain, "@"))
	if o.PointsPerAttendance <= 0 {
		o.PointsPerAttendance = 50
	}
	if o.DefaultTeamSize <= 0 {
		o.DefaultTeamSize = 4
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = 5 * time.Second
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.NewTeamCode == nil {
		o.NewTeamCode = GenerateTeamCode
	}
}

// TicketService orchestrates every ticketing operation.
type TicketService struct {
	store     repository.Store
	publisher Publisher
	opts      Options
	log       *zap.Logger

	pending sync.WaitGroup
}

// NewTicketService constructs a TicketService with its dependencies.
// A nil publisher disables notifications.
func NewTicketService(store repository.Store, publisher Publisher, opts Options, log *zap.Logger) *TicketService {
	opts.setDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &TicketService{store: store, publisher: publisher, opts: opts, log: log}
}

// Wait blocks until in-flight notification publishes have finished.
func (s *TicketService) Wait() {
	s.pending.Wait()
}

// CreateEvent validates the request and stores a new event owned by who.
func (s *TicketService) CreateEvent(ctx context.Context, who model.Identity, req model.CreateEventRequest) (*model.Event, error) {
	if !who.IsStaff() {
		return nil, apperror.ErrForbidden.WithMessage("only organizers can create events")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, apperror.Validation("event title is required")
	}
	if req.StartsAt.IsZero() {
		return nil, apperror.Validation("event start time is required")
	}
	if req.TotalTickets < 0 || req.TotalTickets > maxTotalTickets {
		return nil, apperror.Validation("total_tickets must be between 0 and 100,000")
	}
	if req.ParticipationType == "" {
		req.ParticipationType = model.ParticipationIndividual
	}
	if !req.ParticipationType.Valid() {
		return nil, apperror.Validation("participation_type must be individual, team or both")
	}
	if req.TeamSize < 0 {
		return nil, apperror.Validation("team_size cannot be negative")
	}
	isOpen := true
	if req.IsOpen != nil {
		isOpen = *req.IsOpen
	}

	event := &model.Event{
		ID:                uuid.New().String(),
		Title:             req.Title,
		Description:       strings.TrimSpace(req.Description),
		StartsAt:          req.StartsAt.UTC(),
		Location:          strings.TrimSpace(req.Location),
		Category:          strings.TrimSpace(req.Category),
		OrganizerID:       who.UserID,
		TotalTickets:      req.TotalTickets,
		ParticipationType: req.ParticipationType,
		TeamSize:          req.TeamSize,
		IsRestricted:      req.IsRestricted,
		IsOpen:            isOpen,
		CreatedAt:         s.opts.Now(),
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, err
	}
	s.log.Info("event created",
		zap.String("event_id", event.ID),
		zap.String("organizer_id", who.UserID),
		zap.Int("total_tickets", event.TotalTickets))
	return event, nil
}

// UpdateEvent applies an admin edit. It runs atomically so a concurrent
// registration can never leave total_tickets below tickets_sold.
func (s *TicketService) UpdateEvent(ctx context.Context, who model.Identity, eventID string, req model.UpdateEventRequest) (*model.Event, error) {
	var updated *model.Event
	err := s.store.RunAtomic(ctx, eventID, func(tx repository.Tx) error {
		event, err := tx.Event(ctx)
		if err != nil {
			return err
		}
		if !canManage(who, event) {
			return apperror.ErrForbidden.WithMessage("only the organizer or an admin can edit this event")
		}
		if err := applyUpdate(event, req); err != nil {
			return err
		}
		if err := tx.SaveEvent(ctx, event); err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("event updated", zap.String("event_id", eventID), zap.String("user_id", who.UserID))
	return updated, nil
}

// SetOpen toggles manual registration for an event.
func (s *TicketService) SetOpen(ctx context.Context, who model.Identity, eventID string, open bool) (*model.Event, error) {
	return s.UpdateEvent(ctx, who, eventID, model.UpdateEventRequest{IsOpen: &open})
}

func applyUpdate(e *model.Event, req model.UpdateEventRequest) error {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return apperror.Validation("event title is required")
		}
		e.Title = title
	}
	if req.Description != nil {
		e.Description = strings.TrimSpace(*req.Description)
	}
	if req.StartsAt != nil {
		e.StartsAt = req.StartsAt.UTC()
	}
	if req.Location != nil {
		e.Location = strings.TrimSpace(*req.Location)
	}
	if req.Category != nil {
		e.Category = strings.TrimSpace(*req.Category)
	}
	if req.TotalTickets != nil {
		if *req.TotalTickets < e.TicketsSold || *req.TotalTickets > maxTotalTickets {
			return apperror.Validation("total_tickets cannot drop below tickets already sold")
		}
		e.TotalTickets = *req.TotalTickets
	}
	if req.ParticipationType != nil {
		if !req.ParticipationType.Valid() {
			return apperror.Validation("participation_type must be individual, team or both")
		}
		e.ParticipationType = *req.ParticipationType
	}
	if req.TeamSize != nil {
		if *req.TeamSize < 0 {
			return apperror.Validation("team_size cannot be negative")
		}
		e.TeamSize = *req.TeamSize
	}
	if req.IsRestricted != nil {
		e.IsRestricted = *req.IsRestricted
	}
	if req.IsOpen != nil {
		e.IsOpen = *req.IsOpen
	}
	return nil
}

// DeleteEvent removes an event. Existing tickets are orphaned, not deleted.
func (s *TicketService) DeleteEvent(ctx context.Context, who model.Identity, eventID string) error {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !canManage(who, event) {
		return apperror.ErrForbidden.WithMessage("only the organizer or an admin can delete this event")
	}
	if err := s.store.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	s.log.Info("event deleted", zap.String("event_id", eventID), zap.String("user_id", who.UserID))
	return nil
}

// ListEvents returns all events.
func (s *TicketService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.store.ListEvents(ctx)
}

// GetEvent returns a single event by ID.
func (s *TicketService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, apperror.Validation("event id is required")
	}
	return s.store.GetEvent(ctx, id)
}

// EmailLog returns the delivery history of ticket emails for an event.
func (s *TicketService) EmailLog(ctx context.Context, who model.Identity, eventID string) ([]model.EmailLog, error) {
	if _, err := s.managedEvent(ctx, who, eventID); err != nil {
		return nil, err
	}
	return s.store.ListEmailLogs(ctx, eventID)
}

// managedEvent loads an event that who is allowed to administer.
func (s *TicketService) managedEvent(ctx context.Context, who model.Identity, eventID string) (*model.Event, error) {
	if !who.IsStaff() {
		return nil, apperror.ErrForbidden
	}
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !canManage(who, event) {
		return nil, apperror.ErrForbidden.WithMessage("only the organizer or an admin can manage this event")
	}
	return event, nil
}

// canManage reports whether who administers e. Admins manage every event,
// deleted ones (nil) included; organizers only their own.
func canManage(who model.Identity, e *model.Event) bool {
	if who.Role == model.RoleAdmin {
		return true
	}
	return e != nil && who.Role == model.RoleOrganizer && e.OrganizerID == who.UserID
}

// validateIdentity checks the caller fields the core snapshots into tickets.
func validateIdentity(who model.Identity) error {
	if strings.TrimSpace(who.UserID) == "" {
		return apperror.ErrUnauthorized
	}
	if !isValidEmail(who.Email) {
		return apperror.Validation("account email is not a valid email address")
	}
	return nil
}

// isValidEmail does a basic structural check.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}

// outcome labels a result for metrics.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return string(appErr.Code)
	}
	return string(apperror.CodeInternal)
}

func (s *TicketService) track(kind string, start time.Time, err error) {
	metrics.TrackRegistration(kind, outcome(err))
	metrics.ObserveOperation(kind, time.Since(start).Seconds())
}
