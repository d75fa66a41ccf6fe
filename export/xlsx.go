// Package export renders the transaction set as a spreadsheet for download
// or offline backup.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/warp/ledger-engine/ledger"
)

const sheet = "Transactions"

var header = []string{
	"Date", "Description", "Category", "Account", "Type", "Amount", "Status", "Notes",
}

// WriteTransactions writes txs as an .xlsx workbook to w, newest first as
// given. Trashed transactions are the caller's choice to include.
func WriteTransactions(w io.Writer, txs []ledger.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, name := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, t := range txs {
		category := ""
		if t.Category != nil {
			category = t.Category.Name
		}
		account := ""
		if t.Account != nil {
			account = t.Account.Name
		}
		amount, _ := t.Amount.Float64()
		values := []any{
			t.Date.Format("2006-01-02"),
			t.Description,
			category,
			account,
			string(t.Type),
			amount,
			string(t.Status),
			t.Notes,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
