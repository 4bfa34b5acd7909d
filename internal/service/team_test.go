package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/apperror"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/model"
)

// scriptedCodes hands out codes in order, repeating the last one.
func scriptedCodes(codes ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}

func TestGenerateTeamCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateTeamCode()
		require.NoError(t, err)
		require.Len(t, code, teamCodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(teamCodeAlphabet, c), "unexpected rune %q", c)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestNormalizeTeamCode(t *testing.T) {
	assert.Equal(t, "AB3CD9", NormalizeTeamCode("  ab3cd9 "))
	assert.Equal(t, "", NormalizeTeamCode("   "))
}

func TestCreateTeam(t *testing.T) {
	svc, _, pub := newTestService(t, Options{NewTeamCode: scriptedCodes("ROBOTS")})
	ctx := context.Background()
	event := newEvent(t, svc, nil)
	lead := student("lead")

	reg, err := svc.CreateTeam(ctx, event.ID, lead, "  Gophers ")
	require.NoError(t, err)
	assert.Equal(t, model.TypeTeamLeader, reg.Type)
	require.NotNil(t, reg.Team)
	assert.Equal(t, "ROBOTS", reg.Team.Code)
	assert.Equal(t, "Gophers", reg.Team.Name)
	assert.Equal(t, 1, reg.Team.Size)
	assert.Equal(t, 3, reg.Team.MaxSize)
	assert.NoError(t, reg.Validate())
	assert.Equal(t, 1, soldCount(t, svc, event.ID))

	svc.Wait()
	msgs := pub.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ROBOTS", msgs[0].TeamCode)
	assert.Equal(t, "Gophers", msgs[0].TeamName)

	_, err = svc.CreateTeam(ctx, event.ID, lead, "Second")
	assert.ErrorIs(t, err, apperror.ErrAlreadyBooked)
}

func TestCreateTeamRejections(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	ctx := context.Background()
	soloOnly := newEvent(t, svc, func(r *model.CreateEventRequest) { r.ParticipationType = model.ParticipationIndividual })
	full := newEvent(t, svc, func(r *model.CreateEventRequest) { r.TotalTickets = 0 })

	_, err := svc.CreateTeam(ctx, soloOnly.ID, student("a"), "Team")
	assert.ErrorIs(t, err, apperror.ErrParticipationMismatch)

	_, err = svc.CreateTeam(ctx, full.ID, student("a"), "Team")
	assert.ErrorIs(t, err, apperror.ErrSoldOut)

	_, err = svc.CreateTeam(ctx, full.ID, student("a"), "   ")
	assert.ErrorIs(t, err, apperror.Validation(""))

	_, err = svc.CreateTeam(ctx, full.ID, student("a"), strings.Repeat("x", maxTeamNameLen+1))
	assert.ErrorIs(t, err, apperror.Validation(""))
}

func TestCreateTeamDefaultSize(t *testing.T) {
	svc, _, _ := newTestService(t, Options{DefaultTeamSize: 5})
	event := newEvent(t, svc, func(r *model.CreateEventRequest) { r.TeamSize = 0 })

	reg, err := svc.CreateTeam(context.Background(), event.ID, student("lead"), "Defaults")
	require.NoError(t, err)
	assert.Equal(t, 5, reg.Team.MaxSize)
}

func TestTeamCodeCollisionIsRedrawn(t *testing.T) {
	svc, _, _ := newTestService(t, Options{NewTeamCode: scriptedCodes("AAAAAA", "AAAAAA", "BBBBBB")})
	ctx := context.Background()
	event := newEvent(t, svc, nil)

	first, err := svc.CreateTeam(ctx, event.ID, student("a"), "First")
	require.NoError(t, err)
	second, err := svc.CreateTeam(ctx, event.ID, student("b"), "Second")
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first.Team.Code)
	assert.Equal(t, "BBBBBB", second.Team.Code)
}

func TestTeamCodeSpaceExhausted(t *testing.T) {
	svc, _, _ := newTestService(t, Options{NewTeamCode: scriptedCodes("AAAAAA")})
	ctx := context.Background()
	event := newEvent(t, svc, nil)

	_, err := svc.CreateTeam(ctx, event.ID, student("a"), "First")
	require.NoError(t, err)

	_, err = svc.CreateTeam(ctx, event.ID, student("b"), "Second")
	assert.ErrorIs(t, err, errCodeSpaceExhausted)
	assert.Equal(t, 1, soldCount(t, svc, event.ID))
}

func TestJoinTeam(t *testing.T) {
	svc, store, _ := newTestService(t, Options{NewTeamCode: scriptedCodes("GOPHER")})
	ctx := context.Background()
	event := newEvent(t, svc, nil)

	_, err := svc.CreateTeam(ctx, event.ID, student("lead"), "Gophers")
	require.NoError(t, err)

	member, err := svc.JoinTeam(ctx, event.ID, student("m1"), " gopher ")
	require.NoError(t, err)
	assert.Equal(t, model.TypeTeamMember, member.Type)
	assert.Equal(t, "GOPHER", member.Team.Code)
	assert.Equal(t, "Gophers", member.Team.Name)
	assert.NoError(t, member.Validate())

	leader, err := store.GetRegistration(ctx, model.TicketID{EventID: event.ID, UserID: "lead"})
	require.NoError(t, err)
	assert.Equal(t, 2, leader.Team.Size)
	assert.Equal(t, 2, soldCount(t, svc, event.ID))

	t.Run("already in a team", func(t *testing.T) {
		_, err := svc.JoinTeam(ctx, event.ID, student("m1"), "GOPHER")
		assert.ErrorIs(t, err, apperror.ErrAlreadyBooked)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := svc.JoinTeam(ctx, event.ID, student("m2"), "NOPE99")
		assert.ErrorIs(t, err, apperror.ErrInvalidCode)
	})

	t.Run("empty code", func(t *testing.T) {
		_, err := svc.JoinTeam(ctx, event.ID, student("m2"), "  ")
		assert.ErrorIs(t, err, apperror.ErrInvalidCode)
	})

	t.Run("team full", func(t *testing.T) {
		_, err := svc.JoinTeam(ctx, event.ID, student("m2"), "GOPHER")
		require.NoError(t, err)
		_, err = svc.JoinTeam(ctx, event.ID, student("m3"), "GOPHER")
		assert.ErrorIs(t, err, apperror.ErrTeamFull)
		assert.Equal(t, 3, soldCount(t, svc, event.ID))
	})
}

func TestJoinTeamSoldOut(t *testing.T) {
	svc, _, _ := newTestService(t, Options{NewTeamCode: scriptedCodes("GOPHER")})
	ctx := context.Background()
	event := newEvent(t, svc, func(r *model.CreateEventRequest) { r.TotalTickets = 1 })

	_, err := svc.CreateTeam(ctx, event.ID, student("lead"), "Gophers")
	require.NoError(t, err)

	_, err = svc.JoinTeam(ctx, event.ID, student("m1"), "GOPHER")
	assert.ErrorIs(t, err, apperror.ErrSoldOut)
	assert.Equal(t, 1, soldCount(t, svc, event.ID))
}

func TestConcurrentJoinsRespectTeamCap(t *testing.T) {
	svc, store, _ := newTestService(t, Options{NewTeamCode: scriptedCodes("GOPHER")})
	ctx := context.Background()
	event := newEvent(t, svc, func(r *model.CreateEventRequest) {
		r.TotalTickets = 100
		r.TeamSize = 4
	})

	_, err := svc.CreateTeam(ctx, event.ID, student("lead"), "Gophers")
	require.NoError(t, err)

	errs := runConcurrently(20, func(i int) error {
		_, err := svc.JoinTeam(ctx, event.ID, student(fmt.Sprintf("m%02d", i)), "GOPHER")
		return err
	})

	full, ok := countErrs(errs, apperror.ErrTeamFull)
	assert.Equal(t, 3, ok)
	assert.Equal(t, 17, full)

	leader, err := store.GetRegistration(ctx, model.TicketID{EventID: event.ID, UserID: "lead"})
	require.NoError(t, err)
	assert.Equal(t, 4, leader.Team.Size)
	assert.Equal(t, 4, soldCount(t, svc, event.ID))
}

func TestCreateTeamOnFullEventByHolder(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	ctx := context.Background()
	event := newEvent(t, svc, func(r *model.CreateEventRequest) { r.TotalTickets = 1 })
	lead := student("lead")

	_, err := svc.CreateTeam(ctx, event.ID, lead, "Gophers")
	require.NoError(t, err)

	_, err = svc.CreateTeam(ctx, event.ID, lead, "Gophers again")
	assert.ErrorIs(t, err, apperror.ErrAlreadyBooked)
	_, err = svc.CreateTeam(ctx, event.ID, student("other"), "Rivals")
	assert.ErrorIs(t, err, apperror.ErrSoldOut)
}
