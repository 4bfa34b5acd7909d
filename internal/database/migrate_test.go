package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_schema.sql", names[0])
	assert.IsIncreasing(t, names)
}

func TestSchemaGuardsInvariants(t *testing.T) {
	raw, err := migrationsFS.ReadFile("migrations/001_schema.sql")
	require.NoError(t, err)
	sql := string(raw)

	assert.Contains(t, sql, "PRIMARY KEY (event_id, user_id)")
	assert.True(t, strings.Contains(sql, "tickets_sold <= total_tickets"), "capacity check constraint missing")
	assert.Contains(t, sql, "WHERE type = 'team_leader'")
}
