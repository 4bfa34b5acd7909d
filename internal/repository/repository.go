// Package repository implements persistence for the ticketing system.
//
// Every operation that touches the capacity ledger (an event's tickets_sold),
// a team leader's size counter, or a registration's status goes through
// Store.RunAtomic, which serialises all work on one event and commits the
// read-set and write-set as a single unit.
//
// ─────────────────────────────────────────────────────────────────────────────
// WHY NOT READ-THEN-WRITE
// ─────────────────────────────────────────────────────────────────────────────
//
//	request A: read tickets_sold = 9 (total 10)
//	request B: read tickets_sold = 9 (total 10)
//	request A: 9 < 10 → insert ticket, write tickets_sold = 10
//	request B: 9 < 10 → insert ticket, write tickets_sold = 10
//	Result: 11 tickets for a 10-seat event, counter says 10.
//
// Inside RunAtomic the second request only starts reading after the first
// has committed, observes tickets_sold = 10 and fails with SOLD_OUT.
// ─────────────────────────────────────────────────────────────────────────────
package repository

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/model"
)

// Store is the authoritative backing store.
type Store interface {
	// RunAtomic runs fn with exclusive access to eventID. Writes made through
	// tx become visible only if fn returns nil; any error discards them all.
	RunAtomic(ctx context.Context, eventID string, fn func(tx Tx) error) error

	CreateEvent(ctx context.Context, event *model.Event) error
	// DeleteEvent removes the event only; its registrations are left orphaned.
	DeleteEvent(ctx context.Context, eventID string) error
	GetEvent(ctx context.Context, eventID string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)

	GetRegistration(ctx context.Context, id model.TicketID) (*model.Registration, error)
	ListRegistrations(ctx context.Context, eventID string) ([]model.Registration, error)
	ListAttended(ctx context.Context) ([]model.Registration, error)
	ListReviews(ctx context.Context, eventID string) ([]model.Review, error)

	RecordEmail(ctx context.Context, entry *model.EmailLog) error
	ListEmailLogs(ctx context.Context, eventID string) ([]model.EmailLog, error)
}

// Tx is the view of one event available inside RunAtomic.
//
// Lookups of registrations, leaders and reviews return nil with a nil error
// when nothing matches.
type Tx interface {
	// Event returns the locked event or apperror.ErrNotFound.
	Event(ctx context.Context) (*model.Event, error)
	// SaveEvent persists counters, rating and editable fields.
	SaveEvent(ctx context.Context, event *model.Event) error

	Registration(ctx context.Context, userID string) (*model.Registration, error)
	// InsertRegistration fails with apperror.ErrAlreadyBooked when the
	// (event, user) key is taken.
	InsertRegistration(ctx context.Context, reg *model.Registration) error
	UpdateRegistration(ctx context.Context, reg *model.Registration) error
	FindTeamLeader(ctx context.Context, teamCode string) (*model.Registration, error)

	Review(ctx context.Context, userID string) (*model.Review, error)
	// InsertReview fails with apperror.ErrAlreadyReviewed on duplicates.
	InsertReview(ctx context.Context, review *model.Review) error
}

// checkRegistration rejects records that are not a well-formed variant of the
// event held by the transaction.
func checkRegistration(eventID string, reg *model.Registration) error {
	if reg.EventID != eventID {
		return fmt.Errorf("registration for event %q written in transaction for %q", reg.EventID, eventID)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("invalid registration %s_%s: %w", reg.EventID, reg.UserID, err)
	}
	return nil
}
