package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/apperror"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/repository"
)

// RegisterIndividual books one ticket for who.
//
// All checks read inside one atomic operation before anything is written:
// event exists, registration open, solo mode allowed, campus domain,
// duplicate, then capacity. A holder retrying on a full event is told
// ALREADY_BOOKED, not SOLD_OUT. The ticket insert and the tickets_sold increment
// commit together. The confirmation email is published afterwards and never
// affects the booking.
func (s *TicketService) RegisterIndividual(ctx context.Context, eventID string, who model.Identity) (reg *model.Registration, err error) {
	start := time.Now()
	defer func() { s.track("register", start, err) }()
	if err = validateIdentity(who); err != nil {
		return nil, err
	}

	var event *model.Event
	err = s.store.RunAtomic(ctx, eventID, func(tx repository.Tx) error {
		e, err := tx.Event(ctx)
		if err != nil {
			return err
		}
		if err := s.admit(e, who, false); err != nil {
			return err
		}
		existing, err := tx.Registration(ctx, who.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.ErrAlreadyBooked
		}
		if e.IsFull() {
			return apperror.ErrSoldOut
		}

		r := s.newRegistration(e.ID, who, model.TypeIndividual, nil)
		if err := tx.InsertRegistration(ctx, r); err != nil {
			return err
		}
		e.TicketsSold++
		if err := tx.SaveEvent(ctx, e); err != nil {
			return err
		}
		reg, event = r, e
		return nil
	})
	if err != nil {
		s.logRejected("registration rejected", eventID, who, err)
		return nil, err
	}

	s.log.Info("ticket booked",
		zap.String("event_id", eventID),
		zap.String("user_id", who.UserID),
		zap.Int("tickets_sold", event.TicketsSold))
	s.notify(event, reg)
	return reg, nil
}

// admit applies the eligibility rules shared by every way of joining an event.
func (s *TicketService) admit(e *model.Event, who model.Identity, team bool) error {
	if !e.IsOpen {
		return apperror.ErrRegistrationClosed
	}
	if team && !e.AllowsTeams() {
		return apperror.ErrParticipationMismatch.WithMessage("this event only accepts individual registrations")
	}
	if !team && !e.AllowsIndividual() {
		return apperror.ErrParticipationMismatch.WithMessage("this event only accepts team registrations")
	}
	// Restricted events fail closed when no campus domain is configured.
	if e.IsRestricted && (s.opts.AllowedDomain == "" || who.Domain() != s.opts.AllowedDomain) {
		return apperror.ErrRestrictedDomain
	}
	return nil
}

func (s *TicketService) newRegistration(eventID string, who model.Identity, typ model.RegistrationType, team *model.TeamInfo) *model.Registration {
	return &model.Registration{
		EventID:   eventID,
		UserID:    who.UserID,
		UserName:  who.DisplayName,
		UserEmail: who.Email,
		Type:      typ,
		Status:    model.StatusConfirmed,
		Team:      team,
		CreatedAt: s.opts.Now(),
	}
}

// notify publishes the confirmation outside the transaction. Failures are
// logged and counted; the booking stands regardless.
func (s *TicketService) notify(event *model.Event, reg *model.Registration) {
	if s.publisher == nil {
		return
	}
	msg := model.NewTicketConfirmed(event, reg)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.NotifyTimeout)
		defer cancel()

		if err := s.publisher.Publish(ctx, msg); err != nil {
			metrics.TrackNotification("dropped")
			s.log.Warn("ticket notification not queued",
				zap.String("ticket_id", msg.TicketID),
				zap.Error(err))
			return
		}
		metrics.TrackNotification("enqueued")
	}()
}

func (s *TicketService) logRejected(msg, eventID string, who model.Identity, err error) {
	if errors.Is(err, apperror.ErrTransientConflict) {
		s.log.Warn(msg+": contention retries exhausted",
			zap.String("event_id", eventID),
			zap.String("user_id", who.UserID),
			zap.String("code", outcome(err)))
		return
	}
	if apperror.IsBusiness(err) {
		s.log.Info(msg,
			zap.String("event_id", eventID),
			zap.String("user_id", who.UserID),
			zap.String("code", outcome(err)))
		return
	}
	s.log.Error(msg,
		zap.String("event_id", eventID),
		zap.String("user_id", who.UserID),
		zap.Error(err))
}
