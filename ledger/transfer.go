/*
transfer.go - Account-to-account transfer as a compensating-action sequence

PURPOSE:
  Neither backend offers the engine a multi-statement transaction, so a
  transfer (two transaction rows) cannot be written atomically. Instead the
  operation is a small state machine whose failure paths are enumerable:

      DebitPending -> CreditPending -> Committed
                           |
                           v
                      RollingBack -> RolledBack | RollbackFailed

  The debit leg is inserted first. If the credit leg fails, the engine
  deletes the just-inserted debit before surfacing the error. Callers retry
  the transfer as a whole, never resume it.

SEE ALSO:
  - engine.go: Transfer() drives this machine
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransferState tracks progress through the compensating-action sequence.
type TransferState string

const (
	TransferDebitPending   TransferState = "debit_pending"
	TransferCreditPending  TransferState = "credit_pending"
	TransferCommitted      TransferState = "committed"
	TransferRollingBack    TransferState = "rolling_back"
	TransferRolledBack     TransferState = "rolled_back"
	TransferRollbackFailed TransferState = "rollback_failed"
)

// TransferRequest describes a transfer between two of the user's accounts.
// Amount is caller input and is parsed, not trusted.
type TransferRequest struct {
	FromAccountID string
	ToAccountID   string
	Amount        string
	Description   string
	Date          time.Time
	Notes         string
}

// Validate applies the transfer preconditions and returns the parsed amount.
func (req TransferRequest) Validate() (decimal.Decimal, error) {
	if req.FromAccountID == "" || req.ToAccountID == "" {
		return decimal.Zero, &ValidationError{Field: "account", Reason: "both accounts are required"}
	}
	if req.FromAccountID == req.ToAccountID {
		return decimal.Zero, &ValidationError{Field: "account", Reason: "source and destination must differ"}
	}
	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	return amount, nil
}

// TransferResult reports a committed transfer: both legs share TransferID
// and their amounts are negatives of each other.
type TransferResult struct {
	TransferID string
	Debit      Transaction
	Credit     Transaction
	State      TransferState
}

// TransferError reports a credit-leg failure after a successful debit leg.
// State is TransferRolledBack when compensation removed the orphaned debit,
// TransferRollbackFailed when it could not.
type TransferError struct {
	State TransferState
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed (%s): %v", e.State, e.Err)
}

func (e *TransferError) Unwrap() error { return ErrPartialFailure }

// Cause returns the credit-leg error that triggered compensation.
func (e *TransferError) Cause() error { return e.Err }
