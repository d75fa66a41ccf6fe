/*
repository_test.go - Typed repositories over the local backend

Tests for:
- Default category/account provisioning (idempotent)
- Stale category references resolving to the "Other" fallback
- Profile sync upserting a single row per user
*/
package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/store/local"
)

func newTestRepos(t *testing.T) *ledger.Repositories {
	t.Helper()
	backend, err := local.New("")
	require.NoError(t, err)
	return ledger.NewRepositories(backend, ledger.GuestUserID)
}

func TestEnsureDefaults_SeedsOnce(t *testing.T) {
	// GIVEN: A fresh user with no categories or accounts
	// WHEN: EnsureDefaults runs twice
	// THEN: The default set exists exactly once

	ctx := context.Background()
	repos := newTestRepos(t)

	require.NoError(t, repos.EnsureDefaults(ctx))
	cats, err := repos.Categories(ctx)
	require.NoError(t, err)
	accts, err := repos.Accounts(ctx)
	require.NoError(t, err)

	firstCats, firstAccts := len(cats), len(accts)
	assert.Greater(t, firstCats, 0)
	require.Len(t, accts, 1)
	assert.Equal(t, "Cash", accts[0].Name)

	names := make(map[string]bool)
	for _, c := range cats {
		names[c.Name] = true
	}
	assert.True(t, names[ledger.FallbackCategoryName], "the fallback category must be part of the seed")

	require.NoError(t, repos.EnsureDefaults(ctx))
	cats, err = repos.Categories(ctx)
	require.NoError(t, err)
	accts, err = repos.Accounts(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, firstCats, "second run must not duplicate categories")
	assert.Len(t, accts, firstAccts)
}

func TestAllTransactions_StaleCategoryFallsBackToOther(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	require.NoError(t, repos.EnsureDefaults(ctx))

	_, err := repos.InsertTransaction(ctx, ledger.Transaction{
		Description: "Mystery",
		Amount:      decimal.RequireFromString("-10"),
		Type:        ledger.TypeExpense,
		CategoryID:  "deleted-category-id",
	})
	require.NoError(t, err)

	txs, err := repos.AllTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.NotNil(t, txs[0].Category)
	assert.Equal(t, ledger.FallbackCategoryName, txs[0].Category.Name)
}

func TestAllTransactions_ResolvesKnownReferences(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	require.NoError(t, repos.EnsureDefaults(ctx))

	cats, err := repos.Categories(ctx)
	require.NoError(t, err)
	accts, err := repos.Accounts(ctx)
	require.NoError(t, err)

	_, err = repos.InsertTransaction(ctx, ledger.Transaction{
		Description: "Groceries run",
		Amount:      decimal.RequireFromString("-42"),
		Type:        ledger.TypeExpense,
		CategoryID:  cats[0].ID,
		AccountID:   accts[0].ID,
	})
	require.NoError(t, err)

	txs, err := repos.AllTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.NotNil(t, txs[0].Category)
	assert.Equal(t, cats[0].Name, txs[0].Category.Name)
	require.NotNil(t, txs[0].Account)
	assert.Equal(t, accts[0].Name, txs[0].Account.Name)
}

func TestSyncProfile_Upserts(t *testing.T) {
	// GIVEN: No profile row
	// WHEN: Syncing twice with different values
	// THEN: Exactly one row exists, carrying the latest values

	ctx := context.Background()
	repos := newTestRepos(t)

	require.NoError(t, repos.SyncProfile(ctx, ledger.Profile{Level: 2, XP: 150, Rank: "Bronze"}))
	require.NoError(t, repos.SyncProfile(ctx, ledger.Profile{Level: 3, XP: 260, Rank: "Bronze"}))

	rows, err := repos.Backend().Select(ctx, ledger.KindProfile, ledger.Filter{Owner: ledger.GuestUserID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Int("level"))
	assert.Equal(t, 260, rows[0].Int("xp"))
}

func TestGetTransaction_NotFound(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	_, err := repos.GetTransaction(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	var nf *ledger.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, ledger.KindTransaction, nf.Kind)
	assert.Equal(t, "missing", nf.ID)
}
