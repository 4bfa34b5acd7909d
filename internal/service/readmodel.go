package service

import (
	"context"
	"errors"
	"sort"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/apperror"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/model"
)

// Leaderboard ranks users by attendance points. It is recomputed from the
// attended tickets on every call; nothing is cached.
func (s *TicketService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	attended, err := s.store.ListAttended(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeLeaderboard(attended, s.opts.PointsPerAttendance, limit), nil
}

// ComputeLeaderboard groups attended registrations by user, awards points
// per attendance and ranks users by points, then user ID. Users with equal
// points share a rank. The result does not depend on input order. A limit
// of zero or less returns every user.
func ComputeLeaderboard(regs []model.Registration, pointsPer, limit int) []model.LeaderboardEntry {
	type tally struct {
		entry  model.LeaderboardEntry
		latest model.Registration
	}
	byUser := make(map[string]*tally)
	for _, r := range regs {
		if r.Status != model.StatusAttended {
			continue
		}
		t, ok := byUser[r.UserID]
		if !ok {
			t = &tally{entry: model.LeaderboardEntry{UserID: r.UserID}, latest: r}
			byUser[r.UserID] = t
		}
		t.entry.Attended++
		t.entry.Points += pointsPer
		if newer(r, t.latest) {
			t.latest = r
		}
	}

	entries := make([]model.LeaderboardEntry, 0, len(byUser))
	for _, t := range byUser {
		t.entry.UserName = t.latest.UserName
		entries = append(entries, t.entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})

	for i := range entries {
		if i > 0 && entries[i].Points == entries[i-1].Points {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// newer orders registrations by creation time, then event ID, so the display
// name comes from the same record whatever the scan order.
func newer(a, b model.Registration) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.EventID > b.EventID
}

// Participants returns the tickets of an event, leaders and members included.
func (s *TicketService) Participants(ctx context.Context, who model.Identity, eventID string) ([]model.Registration, error) {
	if _, err := s.managedEvent(ctx, who, eventID); err != nil {
		return nil, err
	}
	return s.store.ListRegistrations(ctx, eventID)
}

// Ticket returns a single ticket. Holders see their own; the event's
// organizer and admins see any.
func (s *TicketService) Ticket(ctx context.Context, id model.TicketID, who model.Identity) (*model.Registration, error) {
	if id.UserID != who.UserID {
		if !who.IsStaff() {
			return nil, apperror.ErrForbidden
		}
		event, err := s.store.GetEvent(ctx, id.EventID)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			event = nil
		case err != nil:
			return nil, err
		}
		if !canManage(who, event) {
			return nil, apperror.ErrForbidden
		}
	}
	return s.store.GetRegistration(ctx, id)
}
