/*
lifecycle.go - Soft delete, restore, permanent delete, and the audit trail

PURPOSE:
  Transactions move through a small state machine:

      active -> (soft delete) trashed -> (restore) active
                              trashed -> (permanent delete) gone

  "gone" is terminal. Soft delete stamps deleted_at; the row stays fully
  queryable through the trash view. Permanent delete is permitted only from
  the trash - never from the live view - and always appends an audit entry.

  Every lifecycle change is recorded in the append-only audit log with
  actor, action, entity, and a human-readable detail line.
*/
package ledger

import (
	"context"
	"time"
)

// Lifecycle manages delete/restore state and the audit trail for one user.
type Lifecycle struct {
	repos *Repositories
}

func NewLifecycle(repos *Repositories) *Lifecycle {
	return &Lifecycle{repos: repos}
}

// SoftDelete moves a live transaction to the trash. Deleting an already
// trashed transaction is a no-op.
func (l *Lifecycle) SoftDelete(ctx context.Context, id string) error {
	t, err := l.repos.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if t.Deleted() {
		return nil
	}
	now := time.Now().UTC()
	if err := l.repos.PatchTransactions(ctx, []string{id}, Row{"deleted_at": encodeTime(now)}); err != nil {
		return err
	}
	return l.record(ctx, AuditDelete, KindTransaction, id, "trashed "+describeTransaction(t))
}

// Restore moves a trashed transaction back to the live view. Restoring a
// live transaction is a no-op, which makes delete-restore round trips
// idempotent.
func (l *Lifecycle) Restore(ctx context.Context, id string) error {
	t, err := l.repos.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if !t.Deleted() {
		return nil
	}
	if err := l.repos.PatchTransactions(ctx, []string{id}, Row{"deleted_at": nil}); err != nil {
		return err
	}
	return l.record(ctx, AuditRestore, KindTransaction, id, "restored "+describeTransaction(t))
}

// PermanentDelete irreversibly removes a transaction. Only trashed rows may
// be removed; a live row is rejected with a validation error.
func (l *Lifecycle) PermanentDelete(ctx context.Context, id string) error {
	t, err := l.repos.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if !t.Deleted() {
		return &ValidationError{Field: "id", Reason: "permanent delete is only allowed from the trash"}
	}
	if err := l.repos.HardDeleteTransactions(ctx, []string{id}); err != nil {
		return err
	}
	return l.record(ctx, AuditPermanentDelete, KindTransaction, id, "permanently deleted "+describeTransaction(t))
}

// RecordCreate and RecordUpdate let the engine log non-lifecycle mutations
// through the same trail.
func (l *Lifecycle) RecordCreate(ctx context.Context, kind Kind, id, detail string) error {
	return l.record(ctx, AuditCreate, kind, id, detail)
}

func (l *Lifecycle) RecordUpdate(ctx context.Context, kind Kind, id, detail string) error {
	return l.record(ctx, AuditUpdate, kind, id, detail)
}

func (l *Lifecycle) record(ctx context.Context, action AuditAction, kind Kind, id, detail string) error {
	return l.repos.AppendAudit(ctx, AuditEntry{
		Action:     action,
		EntityKind: kind,
		EntityID:   id,
		Detail:     detail,
	})
}
