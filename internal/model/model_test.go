package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTicketID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TicketID
		wantErr bool
	}{
		{name: "plain", input: "evt1_user1", want: TicketID{EventID: "evt1", UserID: "user1"}},
		{name: "user id with separator", input: "evt1_google_123", want: TicketID{EventID: "evt1", UserID: "google_123"}},
		{name: "surrounding space", input: "  evt1_u  ", want: TicketID{EventID: "evt1", UserID: "u"}},
		{name: "no separator", input: "evt1user1", wantErr: true},
		{name: "empty user", input: "evt1_", wantErr: true},
		{name: "empty event", input: "_user1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTicketID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.EventID+"_"+tt.want.UserID, got.String())
		})
	}
}

func TestQRPayload(t *testing.T) {
	id := TicketID{EventID: "evt1", UserID: "user1"}
	encoded := NewQRPayload(id).Encode()
	assert.JSONEq(t, `{"ticket_id":"evt1_user1","event_id":"evt1","user_id":"user1"}`, encoded)

	got, err := ParseQRPayload(encoded)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = ParseQRPayload("evt1_user1")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = ParseQRPayload(`{"ticket_id":"evt1_user1"}`)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseQRPayload(`{"ticket_id":""}`)
	assert.Error(t, err)
	_, err = ParseQRPayload(`{not json`)
	assert.Error(t, err)
}

func TestRegistrationValidate(t *testing.T) {
	base := func(typ RegistrationType, team *TeamInfo) *Registration {
		return &Registration{EventID: "e", UserID: "u", Type: typ, Status: StatusConfirmed, Team: team}
	}

	tests := []struct {
		name    string
		reg     *Registration
		wantErr bool
	}{
		{"individual", base(TypeIndividual, nil), false},
		{"individual with team", base(TypeIndividual, &TeamInfo{Code: "C", Name: "N"}), true},
		{"leader", base(TypeTeamLeader, &TeamInfo{Code: "C", Name: "N", Size: 1, MaxSize: 4}), false},
		{"leader without team", base(TypeTeamLeader, nil), true},
		{"leader over cap", base(TypeTeamLeader, &TeamInfo{Code: "C", Name: "N", Size: 5, MaxSize: 4}), true},
		{"member", base(TypeTeamMember, &TeamInfo{Code: "C", Name: "N"}), false},
		{"member with counters", base(TypeTeamMember, &TeamInfo{Code: "C", Name: "N", Size: 2, MaxSize: 4}), true},
		{"member without code", base(TypeTeamMember, &TeamInfo{Name: "N"}), true},
		{"unknown type", base("solo", nil), true},
		{"unknown status", &Registration{EventID: "e", UserID: "u", Type: TypeIndividual, Status: "lost"}, true},
		{"missing ids", &Registration{Type: TypeIndividual, Status: StatusConfirmed}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusConfirmed.CanTransition(StatusAttended))
	assert.True(t, StatusConfirmed.CanTransition(StatusCancelled))
	assert.False(t, StatusAttended.CanTransition(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransition(StatusAttended))
	assert.False(t, StatusAttended.CanTransition(StatusAttended))
}

func TestCloneDoesNotAlias(t *testing.T) {
	now := time.Now()
	orig := &Registration{
		EventID: "e", UserID: "u", Type: TypeTeamLeader, Status: StatusAttended,
		Team:        &TeamInfo{Code: "C", Name: "N", Size: 1, MaxSize: 3},
		CheckInTime: &now,
	}
	c := orig.Clone()
	c.Team.Size = 3
	*c.CheckInTime = now.Add(time.Hour)

	assert.Equal(t, 1, orig.Team.Size)
	assert.Equal(t, now, *orig.CheckInTime)
}

func TestEventCapacity(t *testing.T) {
	e := &Event{TotalTickets: 2, TicketsSold: 1, ParticipationType: ParticipationTeam}
	assert.Equal(t, 1, e.Remaining())
	assert.False(t, e.IsFull())
	assert.True(t, e.AllowsTeams())
	assert.False(t, e.AllowsIndividual())
	assert.Equal(t, 4, e.MaxTeamSize(4))

	e.TicketsSold = 2
	e.TeamSize = 2
	assert.True(t, e.IsFull())
	assert.Equal(t, 2, e.MaxTeamSize(4))
}

func TestIdentity(t *testing.T) {
	who := Identity{Email: "Alice@Campus.EDU", Role: RoleOrganizer}
	assert.Equal(t, "campus.edu", who.Domain())
	assert.True(t, who.IsStaff())
	assert.False(t, Identity{Role: RoleStudent}.IsStaff())
	assert.Equal(t, "", Identity{Email: "nobody"}.Domain())
}
