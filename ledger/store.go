/*
store.go - Storage backend contract shared by both implementations

PURPOSE:
  Defines the uniform interface between the engine and persistence.
  Two implementations exist:

  - store/sqlremote: networked relational store. Enforces foreign keys
    (transactions -> accounts/categories/goals/debts/investments) and
    row-level ownership.
  - store/local: device-local JSON document for guest mode. Single user,
    synchronous, enforces NO constraints - callers must not rely on
    constraint violations from it.

CONTRACT:
  - Insert returns the inserted rows with assigned identifiers.
  - Filters support, at minimum, equality on owner id and in-list on id.
  - There is NO multi-statement transaction primitive. Multi-row operations
    are modelled as explicit compensating-action sequences in the engine.

ERRORS:
  Backends surface failures wrapped in *ledger.BackendError so callers can
  distinguish them from validation and not-found errors.

SEE ALSO:
  - repository.go: Typed access built on this contract
  - store/local/local.go, store/sqlremote/sqlremote.go: Implementations
*/
package ledger

import "context"

// Row is an entity in its stored column naming (snake_case keys such as
// "category_id"). Repositories translate between Row and the typed structs.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Filter narrows a Select. Zero-value fields are ignored.
type Filter struct {
	// Owner restricts rows to one user id.
	Owner string
	// IDs restricts rows to an id in-list.
	IDs []string
	// Eq restricts rows to column equality matches.
	Eq map[string]any
}

// Backend is the uniform storage contract.
//
// Update and Delete are owner-scoped: the relational backend enforces that
// only rows belonging to owner are touched; the local backend holds a single
// user's data and ignores the owner argument.
type Backend interface {
	Select(ctx context.Context, kind Kind, f Filter) ([]Row, error)
	Insert(ctx context.Context, kind Kind, rows []Row) ([]Row, error)
	Update(ctx context.Context, kind Kind, owner string, ids []string, patch Row) error
	Delete(ctx context.Context, kind Kind, owner string, ids []string) error
}
