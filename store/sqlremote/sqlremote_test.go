/*
sqlremote_test.go - Relational backend over in-memory sqlite

Tests for:
- Schema migration and basic CRUD through the backend contract
- Owner scoping on update and delete
- NULL handling for unset reference columns
*/
package sqlremote

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTransaction(id, owner string) ledger.Row {
	return ledger.Row{
		"id":          id,
		"user_id":     owner,
		"description": "coffee",
		"amount":      decimal.RequireFromString("-4.50"),
		"date":        time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC).Format(time.RFC3339Nano),
		"type":        "expense",
		"status":      "completed",
		"starred":     true,
	}
}

func TestInsertSelect_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	inserted, err := s.Insert(ctx, ledger.KindTransaction, []ledger.Row{sampleTransaction("", "u-1")})
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.NotEmpty(t, inserted[0].String("id"), "missing ids get assigned")

	rows, err := s.Select(ctx, ledger.KindTransaction, ledger.Filter{Owner: "u-1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "coffee", rows[0].String("description"))
	assert.Equal(t, "-4.50", rows[0].Decimal("amount").StringFixed(2))
	assert.True(t, rows[0].Bool("starred"), "flags survive the INTEGER 0/1 encoding")
	assert.Equal(t, "", rows[0].String("category_id"), "unset references come back empty")
}

func TestSelect_OwnerAndEqFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mine := sampleTransaction("t1", "u-1")
	theirs := sampleTransaction("t2", "u-2")
	pending := sampleTransaction("t3", "u-1")
	pending["status"] = "pending"
	_, err := s.Insert(ctx, ledger.KindTransaction, []ledger.Row{mine, theirs, pending})
	require.NoError(t, err)

	rows, err := s.Select(ctx, ledger.KindTransaction, ledger.Filter{Owner: "u-1"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.Select(ctx, ledger.KindTransaction, ledger.Filter{
		Owner: "u-1",
		Eq:    map[string]any{"status": "pending"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t3", rows[0].String("id"))

	_, err = s.Select(ctx, ledger.KindTransaction, ledger.Filter{
		Eq: map[string]any{"no_such_column": 1},
	})
	assert.ErrorIs(t, err, ledger.ErrBackend, "unknown columns are rejected, never interpolated")
}

func TestUpdate_OwnerScoped(t *testing.T) {
	// GIVEN: Rows from two users
	// WHEN: Updating with the wrong owner
	// THEN: Nothing changes

	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Insert(ctx, ledger.KindTransaction, []ledger.Row{sampleTransaction("t1", "u-1")})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, ledger.KindTransaction, "u-2", []string{"t1"}, ledger.Row{"description": "hijacked"}))
	rows, err := s.Select(ctx, ledger.KindTransaction, ledger.Filter{IDs: []string{"t1"}})
	require.NoError(t, err)
	assert.Equal(t, "coffee", rows[0].String("description"))

	require.NoError(t, s.Update(ctx, ledger.KindTransaction, "u-1", []string{"t1"}, ledger.Row{"description": "espresso"}))
	rows, err = s.Select(ctx, ledger.KindTransaction, ledger.Filter{IDs: []string{"t1"}})
	require.NoError(t, err)
	assert.Equal(t, "espresso", rows[0].String("description"))
}

func TestUpdate_NilClearsColumn(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	row := sampleTransaction("t1", "u-1")
	row["deleted_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.Insert(ctx, ledger.KindTransaction, []ledger.Row{row})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, ledger.KindTransaction, "u-1", []string{"t1"}, ledger.Row{"deleted_at": nil}))

	rows, err := s.Select(ctx, ledger.KindTransaction, ledger.Filter{IDs: []string{"t1"}})
	require.NoError(t, err)
	assert.Nil(t, rows[0].TimePtr("deleted_at"), "nil patch value writes NULL")
}

func TestDelete_OwnerScoped(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Insert(ctx, ledger.KindTransaction, []ledger.Row{sampleTransaction("t1", "u-1")})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, ledger.KindTransaction, "u-2", []string{"t1"}))
	rows, err := s.Select(ctx, ledger.KindTransaction, ledger.Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1, "wrong owner must not delete")

	require.NoError(t, s.Delete(ctx, ledger.KindTransaction, "u-1", []string{"t1"}))
	rows, err = s.Select(ctx, ledger.KindTransaction, ledger.Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAllKinds_Migrated(t *testing.T) {
	// Every entity kind must have a table behind it.
	ctx := context.Background()
	s := newTestStore(t)

	for _, kind := range ledger.Kinds() {
		_, err := s.Select(ctx, kind, ledger.Filter{})
		assert.NoError(t, err, "kind %s", kind)
	}
}
