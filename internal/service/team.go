package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/apperror"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/repository"
)

const (
	teamCodeLength   = 6
	teamCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O, 1/I
	teamCodeAttempts = 8
	maxTeamNameLen   = 60
)

// errCodeSpaceExhausted means every generated code collided with an existing team.
var errCodeSpaceExhausted = errors.New("could not allocate a unique team code")

// GenerateTeamCode returns a random, human-copyable team code.
func GenerateTeamCode() (string, error) {
	var b strings.Builder
	b.Grow(teamCodeLength)
	limit := big.NewInt(int64(len(teamCodeAlphabet)))
	for i := 0; i < teamCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate team code: %w", err)
		}
		b.WriteByte(teamCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeTeamCode upper-cases and trims a code typed by a user.
func NormalizeTeamCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateTeam registers who as the leader of a new team.
//
// The leader's ticket consumes one unit of the event's capacity, like an
// individual ticket. The join code is unique within the event: candidates
// are drawn inside the atomic operation and redrawn on collision.
func (s *TicketService) CreateTeam(ctx context.Context, eventID string, who model.Identity, teamName string) (reg *model.Registration, err error) {
	start := time.Now()
	defer func() { s.track("create_team", start, err) }()
	if err = validateIdentity(who); err != nil {
		return nil, err
	}
	teamName = strings.TrimSpace(teamName)
	if teamName == "" {
		return nil, apperror.Validation("team name is required")
	}
	if utf8.RuneCountInString(teamName) > maxTeamNameLen {
		return nil, apperror.Validation(fmt.Sprintf("team name cannot exceed %d characters", maxTeamNameLen))
	}

	var event *model.Event
	err = s.store.RunAtomic(ctx, eventID, func(tx repository.Tx) error {
		e, err := tx.Event(ctx)
		if err != nil {
			return err
		}
		if err := s.admit(e, who, true); err != nil {
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

		code, err := s.uniqueTeamCode(ctx, tx)
		if err != nil {
			return err
		}
		r := s.newRegistration(e.ID, who, model.TypeTeamLeader, &model.TeamInfo{
			Code:    code,
			Name:    teamName,
			Size:    1,
			MaxSize: e.MaxTeamSize(s.opts.DefaultTeamSize),
		})
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
		s.logRejected("team creation rejected", eventID, who, err)
		return nil, err
	}

	s.log.Info("team created",
		zap.String("event_id", eventID),
		zap.String("user_id", who.UserID),
		zap.String("team_code", reg.Team.Code),
		zap.Int("max_team_size", reg.Team.MaxSize))
	s.notify(event, reg)
	return reg, nil
}

func (s *TicketService) uniqueTeamCode(ctx context.Context, tx repository.Tx) (string, error) {
	for i := 0; i < teamCodeAttempts; i++ {
		code, err := s.opts.NewTeamCode()
		if err != nil {
			return "", err
		}
		leader, err := tx.FindTeamLeader(ctx, code)
		if err != nil {
			return "", err
		}
		if leader == nil {
			return code, nil
		}
		s.log.Debug("team code collision", zap.String("team_code", code))
	}
	return "", errCodeSpaceExhausted
}

// JoinTeam adds who to the team identified by teamCode.
//
// Inside one atomic operation: the leader record is re-read, the team cap
// and the caller's existing ticket are checked, then the member ticket, the
// leader's size and the event's tickets_sold are written together.
func (s *TicketService) JoinTeam(ctx context.Context, eventID string, who model.Identity, teamCode string) (reg *model.Registration, err error) {
	start := time.Now()
	defer func() { s.track("join_team", start, err) }()
	if err = validateIdentity(who); err != nil {
		return nil, err
	}
	teamCode = NormalizeTeamCode(teamCode)
	if teamCode == "" {
		return nil, apperror.ErrInvalidCode
	}

	var event *model.Event
	var leaderSize int
	err = s.store.RunAtomic(ctx, eventID, func(tx repository.Tx) error {
		e, err := tx.Event(ctx)
		if err != nil {
			return err
		}
		if err := s.admit(e, who, true); err != nil {
			return err
		}
		leader, err := tx.FindTeamLeader(ctx, teamCode)
		if err != nil {
			return err
		}
		if leader == nil || leader.Status == model.StatusCancelled {
			return apperror.ErrInvalidCode
		}
		if leader.Team.Size >= leader.Team.MaxSize {
			return apperror.ErrTeamFull
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

		r := s.newRegistration(e.ID, who, model.TypeTeamMember, &model.TeamInfo{
			Code: leader.Team.Code,
			Name: leader.Team.Name,
		})
		if err := tx.InsertRegistration(ctx, r); err != nil {
			return err
		}
		leader.Team.Size++
		if err := tx.UpdateRegistration(ctx, leader); err != nil {
			return err
		}
		e.TicketsSold++
		if err := tx.SaveEvent(ctx, e); err != nil {
			return err
		}
		reg, event, leaderSize = r, e, leader.Team.Size
		return nil
	})
	if err != nil {
		s.logRejected("team join rejected", eventID, who, err)
		return nil, err
	}

	s.log.Info("team joined",
		zap.String("event_id", eventID),
		zap.String("user_id", who.UserID),
		zap.String("team_code", teamCode),
		zap.Int("team_size", leaderSize))
	s.notify(event, reg)
	return reg, nil
}
