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

// CheckIn marks a ticket attended.
//
// The status read and the status write happen in one atomic operation, so
// two scanners reading the same QR code at once produce exactly one GRANTED;
// the other sees ALREADY_USED. Re-scanning is an expected outcome, not an
// error, and never changes the record.
func (s *TicketService) CheckIn(ctx context.Context, id model.TicketID) (*model.CheckInResult, error) {
	start := time.Now()
	var result model.CheckInResult
	err := s.store.RunAtomic(ctx, id.EventID, func(tx repository.Tx) error {
		reg, err := tx.Registration(ctx, id.UserID)
		if err != nil {
			return err
		}
		if reg == nil {
			result = model.CheckInResult{Outcome: model.OutcomeInvalid}
			return nil
		}

		switch reg.Status {
		case model.StatusCancelled:
			result = model.CheckInResult{Outcome: model.OutcomeCancelled, Registration: reg}
			return nil
		case model.StatusAttended:
			result = model.CheckInResult{Outcome: model.OutcomeAlreadyUsed, Registration: reg}
			return nil
		}

		now := s.opts.Now()
		reg.Status = model.StatusAttended
		reg.CheckInTime = &now
		if err := tx.UpdateRegistration(ctx, reg); err != nil {
			return err
		}
		result = model.CheckInResult{Outcome: model.OutcomeGranted, Registration: reg}
		return nil
	})
	metrics.ObserveOperation("check_in", time.Since(start).Seconds())
	if err != nil {
		metrics.TrackCheckIn(outcome(err))
		s.log.Error("check-in failed", zap.String("ticket_id", id.String()), zap.Error(err))
		return nil, err
	}

	metrics.TrackCheckIn(string(result.Outcome))
	s.log.Info("ticket scanned",
		zap.String("ticket_id", id.String()),
		zap.String("outcome", string(result.Outcome)))
	return &result, nil
}

// CheckInPayload resolves scanned QR text and checks the ticket in. Text
// that does not decode to a ticket ID is reported as INVALID.
func (s *TicketService) CheckInPayload(ctx context.Context, payload string) (*model.CheckInResult, error) {
	id, err := model.ParseQRPayload(payload)
	if err != nil {
		metrics.TrackCheckIn(string(model.OutcomeInvalid))
		s.log.Info("unreadable ticket payload", zap.Error(err))
		return &model.CheckInResult{Outcome: model.OutcomeInvalid}, nil
	}
	return s.CheckIn(ctx, id)
}

// Cancel releases a confirmed ticket and returns its seat to the event.
//
// Only the ticket holder, the event's organizer or an admin may cancel.
// Attended and cancelled tickets are rejected with NOT_CANCELLABLE and leave
// tickets_sold untouched, so a repeated cancel can never release the same
// seat twice. A leader cannot
// cancel while members remain; a member's cancellation shrinks the team.
func (s *TicketService) Cancel(ctx context.Context, id model.TicketID, who model.Identity) (err error) {
	start := time.Now()
	defer func() { s.track("cancel", start, err) }()

	err = s.store.RunAtomic(ctx, id.EventID, func(tx repository.Tx) error {
		reg, err := tx.Registration(ctx, id.UserID)
		if err != nil {
			return err
		}
		if reg == nil {
			return apperror.ErrNotFound.WithMessage("ticket not found")
		}
		event, err := tx.Event(ctx)
		if errors.Is(err, apperror.ErrNotFound) {
			// Orphaned ticket: the event is gone, there is no ledger to credit.
			event, err = nil, nil
		}
		if err != nil {
			return err
		}
		if reg.UserID != who.UserID && !canManage(who, event) {
			return apperror.ErrForbidden.WithMessage("you can only cancel your own ticket")
		}
		if !reg.Status.CanTransition(model.StatusCancelled) {
			return apperror.ErrNotCancellable
		}

		switch reg.Type {
		case model.TypeTeamLeader:
			if reg.Team.Size > 1 {
				return apperror.ErrTeamNotEmpty
			}
		case model.TypeTeamMember:
			leader, err := tx.FindTeamLeader(ctx, reg.Team.Code)
			if err != nil {
				return err
			}
			if leader != nil && leader.Team.Size > 1 {
				leader.Team.Size--
				if err := tx.UpdateRegistration(ctx, leader); err != nil {
					return err
				}
			}
		}

		if event != nil {
			if event.TicketsSold > 0 {
				event.TicketsSold--
			}
			if err := tx.SaveEvent(ctx, event); err != nil {
				return err
			}
		}

		now := s.opts.Now()
		reg.Status = model.StatusCancelled
		reg.CancelledAt = &now
		return tx.UpdateRegistration(ctx, reg)
	})
	if err != nil {
		s.logRejected("cancellation rejected", id.EventID, who, err)
		return err
	}

	s.log.Info("ticket cancelled",
		zap.String("ticket_id", id.String()),
		zap.String("by_user_id", who.UserID))
	return nil
}
