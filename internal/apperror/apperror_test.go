package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	custom := ErrSoldOut.WithMessage("the workshop is full")
	assert.ErrorIs(t, custom, ErrSoldOut)
	assert.NotErrorIs(t, custom, ErrAlreadyBooked)
	assert.Equal(t, "event is sold out", ErrSoldOut.Message)

	wrapped := fmt.Errorf("register: %w", custom)
	assert.ErrorIs(t, wrapped, ErrSoldOut)
	assert.True(t, IsBusiness(wrapped))
}

func TestFrom(t *testing.T) {
	appErr := From(fmt.Errorf("tx: %w", ErrTeamFull))
	assert.Equal(t, CodeTeamFull, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.StatusCode)

	infra := errors.New("connection refused")
	appErr = From(infra)
	assert.Equal(t, CodeInternal, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	assert.ErrorIs(t, appErr, infra)
	assert.False(t, IsBusiness(infra))
}

func TestError(t *testing.T) {
	assert.Equal(t, "VALIDATION: bad rating", Validation("bad rating").Error())

	withCause := &AppError{Code: CodeTransientConflict, Message: "retry", Internal: errors.New("40001")}
	assert.Equal(t, "TRANSIENT_CONFLICT: retry (40001)", withCause.Error())
}
