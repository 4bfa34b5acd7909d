package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/apperror"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/model"
)

// DefaultMaxAttempts bounds how often a conflicting transaction is retried
// before TRANSIENT_CONFLICT reaches the caller.
const DefaultMaxAttempts = 4

const retryBackoff = 25 * time.Millisecond

const eventColumns = `id, title, description, starts_at, location, category, organizer_id,
	total_tickets, tickets_sold, participation_type, team_size, is_restricted, is_open,
	rating_average, rating_count, created_at`

const registrationColumns = `event_id, user_id, user_name, user_email, type, status,
	team_code, team_name, team_size, max_team_size, created_at, check_in_time, cancelled_at`

// PostgresStore is the production Store backed by pgx.
type PostgresStore struct {
	db          *pgxpool.Pool
	maxAttempts int
	log         *zap.Logger
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool, maxAttempts int, log *zap.Logger) *PostgresStore {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresStore{db: db, maxAttempts: maxAttempts, log: log}
}

// RunAtomic implements Store.
//
// Each attempt opens a transaction and takes a transaction-scoped advisory
// lock keyed by the event ID before fn reads anything, so concurrent
// operations on one event queue behind each other. The lock exists even when
// the event row does not (orphaned tickets can still be scanned). The event
// row itself is additionally read FOR UPDATE in Tx.Event, which also blocks
// writers that bypass RunAtomic. Serialization failures and deadlocks are
// retried; after maxAttempts the caller gets TRANSIENT_CONFLICT.
func (s *PostgresStore) RunAtomic(ctx context.Context, eventID string, fn func(tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.runOnce(ctx, eventID, fn)
		if !isRetryable(err) {
			return err
		}
		s.log.Warn("transaction conflict, retrying",
			zap.String("event_id", eventID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == s.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return &apperror.AppError{
		Code:       apperror.ErrTransientConflict.Code,
		Message:    apperror.ErrTransientConflict.Message,
		StatusCode: apperror.ErrTransientConflict.StatusCode,
		Internal:   err,
	}
}

func (s *PostgresStore) runOnce(ctx context.Context, eventID string, fn func(tx Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Ensure the transaction is always resolved.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, eventID); err != nil {
		return fmt.Errorf("lock event %s: %w", eventID, err)
	}

	if err = fn(&pgTx{tx: tx, eventID: eventID}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateEvent implements Store.
func (s *PostgresStore) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.ID, e.Title, e.Description, e.StartsAt, e.Location, e.Category, e.OrganizerID,
		e.TotalTickets, e.TicketsSold, e.ParticipationType, e.TeamSize, e.IsRestricted, e.IsOpen,
		e.RatingAverage, e.RatingCount, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// DeleteEvent implements Store.
func (s *PostgresStore) DeleteEvent(ctx context.Context, eventID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

// GetEvent implements Store.
func (s *PostgresStore) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	e, err := scanEvent(s.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListEvents implements Store.
func (s *PostgresStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// GetRegistration implements Store.
func (s *PostgresStore) GetRegistration(ctx context.Context, id model.TicketID) (*model.Registration, error) {
	r, err := scanRegistration(s.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE event_id = $1 AND user_id = $2`,
		id.EventID, id.UserID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return r, nil
}

// ListRegistrations implements Store.
func (s *PostgresStore) ListRegistrations(ctx context.Context, eventID string) ([]model.Registration, error) {
	return s.queryRegistrations(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = $1
		 ORDER BY created_at ASC, user_id ASC`,
		eventID,
	)
}

// ListAttended implements Store.
func (s *PostgresStore) ListAttended(ctx context.Context) ([]model.Registration, error) {
	return s.queryRegistrations(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE status = $1`,
		model.StatusAttended,
	)
}

func (s *PostgresStore) queryRegistrations(ctx context.Context, sql string, args ...any) ([]model.Registration, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *r)
	}
	return regs, rows.Err()
}

// ListReviews implements Store.
func (s *PostgresStore) ListReviews(ctx context.Context, eventID string) ([]model.Review, error) {
	rows, err := s.db.Query(ctx,
		`SELECT event_id, user_id, user_name, rating, comment, created_at
		 FROM reviews WHERE event_id = $1
		 ORDER BY created_at DESC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.EventID, &r.UserID, &r.UserName, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// RecordEmail implements Store.
func (s *PostgresStore) RecordEmail(ctx context.Context, entry *model.EmailLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO email_logs (id, event_id, user_id, recipient_email, subject, status, attempt, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.EventID, entry.UserID, entry.RecipientEmail, entry.Subject,
		entry.Status, entry.Attempt, entry.ErrorMessage, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert email log: %w", err)
	}
	return nil
}

// ListEmailLogs implements Store.
func (s *PostgresStore) ListEmailLogs(ctx context.Context, eventID string) ([]model.EmailLog, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, event_id, user_id, recipient_email, subject, status, attempt, error_message, created_at
		 FROM email_logs WHERE event_id = $1
		 ORDER BY created_at DESC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list email logs: %w", err)
	}
	defer rows.Close()

	var logs []model.EmailLog
	for rows.Next() {
		var l model.EmailLog
		if err := rows.Scan(&l.ID, &l.EventID, &l.UserID, &l.RecipientEmail, &l.Subject,
			&l.Status, &l.Attempt, &l.ErrorMessage, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan email log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// pgTx is the Tx handed to RunAtomic callbacks.
type pgTx struct {
	tx      pgx.Tx
	eventID string
}

func (t *pgTx) Event(ctx context.Context) (*model.Event, error) {
	e, err := scanEvent(t.tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`,
		t.eventID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	return e, nil
}

func (t *pgTx) SaveEvent(ctx context.Context, e *model.Event) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE events SET
			title = $2, description = $3, starts_at = $4, location = $5, category = $6,
			total_tickets = $7, tickets_sold = $8, participation_type = $9, team_size = $10,
			is_restricted = $11, is_open = $12, rating_average = $13, rating_count = $14
		 WHERE id = $1`,
		t.eventID, e.Title, e.Description, e.StartsAt, e.Location, e.Category,
		e.TotalTickets, e.TicketsSold, e.ParticipationType, e.TeamSize,
		e.IsRestricted, e.IsOpen, e.RatingAverage, e.RatingCount,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

func (t *pgTx) Registration(ctx context.Context, userID string) (*model.Registration, error) {
	r, err := scanRegistration(t.tx.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = $1 AND user_id = $2
		 FOR UPDATE`,
		t.eventID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return r, nil
}

func (t *pgTx) InsertRegistration(ctx context.Context, r *model.Registration) error {
	if err := checkRegistration(t.eventID, r); err != nil {
		return err
	}
	code, name, size, maxSize := teamColumns(r)
	_, err := t.tx.Exec(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.eventID, r.UserID, r.UserName, r.UserEmail, r.Type, r.Status,
		code, name, size, maxSize, r.CreatedAt, r.CheckInTime, r.CancelledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrAlreadyBooked
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateRegistration(ctx context.Context, r *model.Registration) error {
	if err := checkRegistration(t.eventID, r); err != nil {
		return err
	}
	code, name, size, maxSize := teamColumns(r)
	tag, err := t.tx.Exec(ctx,
		`UPDATE registrations SET
			user_name = $3, user_email = $4, type = $5, status = $6,
			team_code = $7, team_name = $8, team_size = $9, max_team_size = $10,
			check_in_time = $11, cancelled_at = $12
		 WHERE event_id = $1 AND user_id = $2`,
		t.eventID, r.UserID, r.UserName, r.UserEmail, r.Type, r.Status,
		code, name, size, maxSize, r.CheckInTime, r.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

func (t *pgTx) FindTeamLeader(ctx context.Context, teamCode string) (*model.Registration, error) {
	r, err := scanRegistration(t.tx.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = $1 AND team_code = $2 AND type = $3
		 FOR UPDATE`,
		t.eventID, teamCode, model.TypeTeamLeader,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find team leader: %w", err)
	}
	return r, nil
}

func (t *pgTx) Review(ctx context.Context, userID string) (*model.Review, error) {
	var r model.Review
	err := t.tx.QueryRow(ctx,
		`SELECT event_id, user_id, user_name, rating, comment, created_at
		 FROM reviews WHERE event_id = $1 AND user_id = $2`,
		t.eventID, userID,
	).Scan(&r.EventID, &r.UserID, &r.UserName, &r.Rating, &r.Comment, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return &r, nil
}

func (t *pgTx) InsertReview(ctx context.Context, r *model.Review) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO reviews (event_id, user_id, user_name, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.eventID, r.UserID, r.UserName, r.Rating, r.Comment, r.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrAlreadyReviewed
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.Location, &e.Category, &e.OrganizerID,
		&e.TotalTickets, &e.TicketsSold, &e.ParticipationType, &e.TeamSize, &e.IsRestricted, &e.IsOpen,
		&e.RatingAverage, &e.RatingCount, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var (
		r             model.Registration
		code, name    *string
		size, maxSize *int
	)
	err := row.Scan(
		&r.EventID, &r.UserID, &r.UserName, &r.UserEmail, &r.Type, &r.Status,
		&code, &name, &size, &maxSize, &r.CreatedAt, &r.CheckInTime, &r.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	if code != nil {
		r.Team = &model.TeamInfo{Code: *code}
		if name != nil {
			r.Team.Name = *name
		}
		if size != nil {
			r.Team.Size = *size
		}
		if maxSize != nil {
			r.Team.MaxSize = *maxSize
		}
	}
	return &r, nil
}

// teamColumns flattens the team variant into nullable columns.
func teamColumns(r *model.Registration) (code, name *string, size, maxSize *int) {
	if r.Team == nil {
		return nil, nil, nil, nil
	}
	code, name = &r.Team.Code, &r.Team.Name
	if r.Type == model.TypeTeamLeader {
		size, maxSize = &r.Team.Size, &r.Team.MaxSize
	}
	return code, name, size, maxSize
}
