package inbox

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDedupes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seen, err := m.Seen(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, seen)

	ok, err := m.Record(ctx, "e1", "tailor.travel.updated.v1")
	require.NoError(t, err)
	assert.True(t, ok)
	seen, err = m.Seen(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, seen)
	ok, err = m.Record(ctx, "e1", "tailor.travel.updated.v1")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = m.Record(ctx, "e2", "tailor.travel.updated.v1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
}
