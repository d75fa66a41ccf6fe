/*
local_test.go - Guest-mode JSON document backend

Tests for:
- Insert/select round trips, id assignment
- Patch semantics (nil clears a field)
- Persistence across reopen
- Filter matching (owner, ids, eq)
*/
package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/store/local"
)

func TestInsert_AssignsIDs(t *testing.T) {
	ctx := context.Background()
	s, err := local.New("")
	require.NoError(t, err)

	inserted, err := s.Insert(ctx, ledger.KindTransaction, []ledger.Row{
		{"user_id": "guest", "description": "a"},
		{"id": "fixed-id", "user_id": "guest", "description": "b"},
	})
	require.NoError(t, err)
	require.Len(t, inserted, 2)
	assert.NotEmpty(t, inserted[0].String("id"), "missing ids get assigned")
	assert.Equal(t, "fixed-id", inserted[1].String("id"), "provided ids are kept")
}

func TestSelect_Filters(t *testing.T) {
	ctx := context.Background()
	s, err := local.New("")
	require.NoError(t, err)

	_, err = s.Insert(ctx, ledger.KindTransaction, []ledger.Row{
		{"id": "t1", "user_id": "guest", "status": "pending"},
		{"id": "t2", "user_id": "guest", "status": "completed"},
		{"id": "t3", "user_id": "someone-else", "status": "pending"},
	})
	require.NoError(t, err)

	rows, err := s.Select(ctx, ledger.KindTransaction, ledger.Filter{Owner: "guest"})
	require.NoError(t, err)
	assert.Len(t, rows, 2, "owner filter excludes other users")

	rows, err = s.Select(ctx, ledger.KindTransaction, ledger.Filter{Owner: "guest", IDs: []string{"t2"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t2", rows[0].String("id"))

	rows, err = s.Select(ctx, ledger.KindTransaction, ledger.Filter{
		Owner: "guest",
		Eq:    map[string]any{"status": "pending"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t1", rows[0].String("id"))
}

func TestSelect_ReturnsCopies(t *testing.T) {
	// GIVEN: A stored row
	// WHEN: A caller mutates the selected row
	// THEN: The stored document is untouched

	ctx := context.Background()
	s, err := local.New("")
	require.NoError(t, err)

	_, err = s.Insert(ctx, ledger.KindGoal, []ledger.Row{{"id": "g1", "user_id": "guest", "name": "original"}})
	require.NoError(t, err)

	rows, err := s.Select(ctx, ledger.KindGoal, ledger.Filter{IDs: []string{"g1"}})
	require.NoError(t, err)
	rows[0]["name"] = "mutated"

	rows, err = s.Select(ctx, ledger.KindGoal, ledger.Filter{IDs: []string{"g1"}})
	require.NoError(t, err)
	assert.Equal(t, "original", rows[0].String("name"))
}

func TestUpdate_PatchMergesAndNilClears(t *testing.T) {
	ctx := context.Background()
	s, err := local.New("")
	require.NoError(t, err)

	_, err = s.Insert(ctx, ledger.KindTransaction, []ledger.Row{
		{"id": "t1", "user_id": "guest", "description": "x", "deleted_at": "2024-01-01T00:00:00Z"},
	})
	require.NoError(t, err)

	err = s.Update(ctx, ledger.KindTransaction, "guest", []string{"t1"}, ledger.Row{
		"description": "y",
		"deleted_at":  nil, // un-delete
		"id":          "hijack",
	})
	require.NoError(t, err)

	rows, err := s.Select(ctx, ledger.KindTransaction, ledger.Filter{IDs: []string{"t1"}})
	require.NoError(t, err)
	require.Len(t, rows, 1, "id is never patchable")
	assert.Equal(t, "y", rows[0].String("description"))
	_, hasDeleted := rows[0]["deleted_at"]
	assert.False(t, hasDeleted, "nil patch value clears the field")
}

func TestDelete_RemovesOnlyTargets(t *testing.T) {
	ctx := context.Background()
	s, err := local.New("")
	require.NoError(t, err)

	_, err = s.Insert(ctx, ledger.KindTransaction, []ledger.Row{
		{"id": "t1", "user_id": "guest"},
		{"id": "t2", "user_id": "guest"},
	})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, ledger.KindTransaction, "guest", []string{"t1"}))

	rows, err := s.Select(ctx, ledger.KindTransaction, ledger.Filter{Owner: "guest"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t2", rows[0].String("id"))
}

func TestPersistence_SurvivesReopen(t *testing.T) {
	// GIVEN: A store backed by a file with one transaction
	// WHEN: Reopening the same path
	// THEN: The data is back, field for field

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")

	s, err := local.New(path)
	require.NoError(t, err)
	_, err = s.Insert(ctx, ledger.KindTransaction, []ledger.Row{
		{"id": "t1", "user_id": "guest", "description": "persisted", "amount": "-12.50", "starred": true},
	})
	require.NoError(t, err)

	reopened, err := local.New(path)
	require.NoError(t, err)
	rows, err := reopened.Select(ctx, ledger.KindTransaction, ledger.Filter{Owner: "guest"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "persisted", rows[0].String("description"))
	assert.Equal(t, "-12.50", rows[0].Decimal("amount").StringFixed(2))
	assert.True(t, rows[0].Bool("starred"))
}

func TestNew_MissingFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")
	s, err := local.New(path)
	require.NoError(t, err)

	rows, err := s.Select(context.Background(), ledger.KindTransaction, ledger.Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNew_CorruptDocumentRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := local.New(path)
	assert.ErrorIs(t, err, ledger.ErrBackend)
}
