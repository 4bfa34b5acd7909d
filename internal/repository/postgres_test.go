package repository

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/model"
)

func TestPgErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		unique    bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true, false},
		{"deadlock", fmt.Errorf("update: %w", &pgconn.PgError{Code: "40P01"}), true, false},
		{"unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), false, true},
		{"check violation", &pgconn.PgError{Code: "23514"}, false, false},
		{"plain error", errors.New("connection reset"), false, false},
		{"nil", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryable(tt.err))
			assert.Equal(t, tt.unique, isUniqueViolation(tt.err))
		})
	}
}

func TestNewPostgresStoreDefaults(t *testing.T) {
	s := NewPostgresStore(nil, 0, nil)
	assert.Equal(t, DefaultMaxAttempts, s.maxAttempts)
	assert.NotNil(t, s.log)
}

// fakeRow feeds fixed values to Scan; a nil value leaves the destination zero.
type fakeRow []any

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(r))
	}
	for i, v := range r {
		if v == nil {
			continue
		}
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

func TestTeamColumnsRoundTrip(t *testing.T) {
	created := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		reg  *model.Registration
	}{
		{"individual", &model.Registration{Type: model.TypeIndividual}},
		{"leader", &model.Registration{Type: model.TypeTeamLeader, Team: &model.TeamInfo{Code: "GOPHER", Name: "Gophers", Size: 2, MaxSize: 4}}},
		{"member", &model.Registration{Type: model.TypeTeamMember, Team: &model.TeamInfo{Code: "GOPHER", Name: "Gophers"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, name, size, maxSize := teamColumns(tt.reg)
			row := fakeRow{
				"evt1", "u1", "User", "u1@campus.edu", tt.reg.Type, model.StatusConfirmed,
				ptrOrNil(code), ptrOrNil(name), ptrOrNil(size), ptrOrNil(maxSize), created, nil, nil,
			}
			got, err := scanRegistration(row)
			require.NoError(t, err)
			assert.Equal(t, tt.reg.Team, got.Team)
			assert.Equal(t, tt.reg.Type, got.Type)
			assert.Nil(t, got.CheckInTime)
		})
	}
}

// ptrOrNil turns a typed nil pointer into an untyped nil for fakeRow.
func ptrOrNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return p
}
