package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	lg, err := New("debug")
	require.NoError(t, err)
	assert.True(t, lg.Core().Enabled(zapcore.DebugLevel))

	lg, err = New("nonsense")
	require.NoError(t, err)
	assert.False(t, lg.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, lg.Core().Enabled(zapcore.InfoLevel))
}
