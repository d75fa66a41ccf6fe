package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/ledger-engine/ledger"
)

func TestWriteTransactions_RoundTrip(t *testing.T) {
	// GIVEN: Two transactions with resolved references
	// WHEN: Writing the workbook and reading it back
	// THEN: Header plus one row per transaction, fields in order

	txs := []ledger.Transaction{
		{
			Description: "Salary",
			Amount:      decimal.RequireFromString("2500"),
			Date:        time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			Type:        ledger.TypeIncome,
			Status:      ledger.StatusCompleted,
			Category:    &ledger.Category{Name: "Salary"},
			Account:     &ledger.Account{Name: "Checking"},
		},
		{
			Description: "Groceries",
			Amount:      decimal.RequireFromString("-84.20"),
			Date:        time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC),
			Type:        ledger.TypeExpense,
			Status:      ledger.StatusCompleted,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, txs))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Transactions")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "Amount", rows[0][5])

	assert.Equal(t, "2024-03-01", rows[1][0])
	assert.Equal(t, "Salary", rows[1][1])
	assert.Equal(t, "Checking", rows[1][3])

	assert.Equal(t, "Groceries", rows[2][1])
	assert.Equal(t, "", rows[2][2], "missing references export as empty cells")
}

func TestWriteTransactions_EmptySet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Transactions")
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}
