/*
Package sqlremote provides the relational storage backend.

PURPOSE:
  Implements ledger.Backend over database/sql. This is the networked,
  multi-user side of the storage split: one table per entity kind, every row
  scoped by a user_id column, with declared foreign keys from transactions
  to accounts, categories, goals, debts, and investments. Row-level
  ownership is enforced on every statement, not just reads.

DRIVERS:
  Two drivers from the same codepath:
  - "sqlite3" (mattn/go-sqlite3), opened with foreign keys on and WAL mode.
    Use ":memory:" for an ephemeral database.
  - "postgres" (lib/pq) for a genuinely remote server. The only dialect
    difference that matters here is placeholder style, handled by rebind().

ENCODING:
  Timestamps are RFC3339 TEXT, amounts are decimal TEXT, flags are INTEGER
  0/1. Generic scan goes through `any` and the ledger.Row coercion helpers,
  so the engine never sees driver-specific types.

NO CLIENT TRANSACTIONS:
  Deliberately, this store exposes no multi-statement transaction to the
  engine. Multi-row operations (transfers) are compensating-action
  sequences; pretending atomicity here would hide the failure paths the
  engine is built to enumerate.

SEE ALSO:
  - ledger/store.go: The contract
  - store/local: The guest-mode counterpart
*/
package sqlremote

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"
	"github.com/warp/ledger-engine/ledger"
)

type Store struct {
	db         *sql.DB
	driver     string
	bindDollar bool // postgres uses $1 placeholders
}

// New opens the database and migrates the schema.
func New(driver, dsn string) (*Store, error) {
	if driver == "sqlite3" && !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_journal_mode=WAL"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, &ledger.BackendError{Op: "open", Err: err}
	}
	if driver == "sqlite3" {
		// One writer; also keeps :memory: databases from splitting across
		// pooled connections.
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db, driver: driver, bindDollar: driver == "postgres"}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, &ledger.BackendError{Op: "migrate", Err: err}
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// rebind converts ?-style placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if !s.bindDollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// =============================================================================
// SCHEMA
// =============================================================================

// tableSpec declares the column set per entity kind. Insert and update
// statements are built from this list; unknown row keys are dropped rather
// than interpolated.
type tableSpec struct {
	name    string
	columns []string
}

var tables = map[ledger.Kind]tableSpec{
	ledger.KindTransaction: {"transactions", []string{
		"id", "user_id", "description", "amount", "date", "created_at", "type",
		"category_id", "account_id", "status", "goal_contribution_id",
		"debt_payment_id", "investment_id", "transfer_id", "from_account_id",
		"to_account_id", "exclude_from_reports", "reconciled", "starred",
		"notes", "deleted_at",
	}},
	ledger.KindGoal: {"goals", []string{
		"id", "user_id", "name", "target_amount", "current_amount", "deadline",
		"status", "created_at",
	}},
	ledger.KindDebt: {"debts", []string{
		"id", "user_id", "name", "total_amount", "paid_amount", "interest_rate",
		"category", "status", "created_at",
	}},
	ledger.KindScheduled: {"scheduled_transactions", []string{
		"id", "user_id", "description", "amount", "type", "category_id",
		"frequency", "start_date", "next_due_date", "created_at",
	}},
	ledger.KindCategory: {"categories", []string{
		"id", "user_id", "name", "type", "icon", "created_at",
	}},
	ledger.KindAccount: {"accounts", []string{
		"id", "user_id", "name", "type", "created_at",
	}},
	ledger.KindBudget: {"budgets", []string{
		"id", "user_id", "category_id", "monthly_limit", "created_at",
	}},
	ledger.KindInvestment: {"investments", []string{
		"id", "user_id", "name", "invested_amount", "current_value", "created_at",
	}},
	ledger.KindAuditLog: {"audit_logs", []string{
		"id", "user_id", "action", "entity_kind", "entity_id", "detail", "created_at",
	}},
	ledger.KindProfile: {"profiles", []string{
		"id", "user_id", "level", "xp", "rank", "synced_at",
	}},
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		icon TEXT,
		created_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_categories_user ON categories(user_id);

	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT,
		created_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		target_amount TEXT NOT NULL,
		current_amount TEXT,
		deadline TEXT,
		status TEXT,
		created_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id);

	CREATE TABLE IF NOT EXISTS debts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		paid_amount TEXT,
		interest_rate TEXT,
		category TEXT,
		status TEXT,
		created_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_debts_user ON debts(user_id);

	CREATE TABLE IF NOT EXISTS investments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		invested_amount TEXT,
		current_value TEXT,
		created_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_investments_user ON investments(user_id);

	-- Transactions last: they reference everything above.
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		description TEXT,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		created_at TEXT,
		type TEXT NOT NULL,
		category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
		account_id TEXT REFERENCES accounts(id) ON DELETE SET NULL,
		status TEXT,
		goal_contribution_id TEXT REFERENCES goals(id) ON DELETE CASCADE,
		debt_payment_id TEXT REFERENCES debts(id) ON DELETE CASCADE,
		investment_id TEXT REFERENCES investments(id) ON DELETE SET NULL,
		transfer_id TEXT,
		from_account_id TEXT,
		to_account_id TEXT,
		exclude_from_reports INTEGER DEFAULT 0,
		reconciled INTEGER DEFAULT 0,
		starred INTEGER DEFAULT 0,
		notes TEXT,
		deleted_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
	CREATE INDEX IF NOT EXISTS idx_transactions_transfer ON transactions(transfer_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_deleted ON transactions(deleted_at);

	CREATE TABLE IF NOT EXISTS scheduled_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		description TEXT,
		amount TEXT NOT NULL,
		type TEXT,
		category_id TEXT,
		frequency TEXT NOT NULL,
		start_date TEXT NOT NULL,
		next_due_date TEXT NOT NULL,
		created_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_scheduled_user ON scheduled_transactions(user_id);

	CREATE TABLE IF NOT EXISTS budgets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		category_id TEXT,
		monthly_limit TEXT,
		created_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_budgets_user ON budgets(user_id);

	CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		action TEXT NOT NULL,
		entity_kind TEXT NOT NULL,
		entity_id TEXT,
		detail TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_logs(user_id);

	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		level INTEGER,
		xp INTEGER,
		rank TEXT,
		synced_at TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BACKEND CONTRACT
// =============================================================================

func (s *Store) Select(ctx context.Context, kind ledger.Kind, f ledger.Filter) ([]ledger.Row, error) {
	spec, ok := tables[kind]
	if !ok {
		return nil, &ledger.BackendError{Op: "select", Err: fmt.Errorf("unknown kind %q", kind)}
	}

	var (
		where []string
		args  []any
	)
	if f.Owner != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.Owner)
	}
	if len(f.IDs) > 0 {
		where = append(where, "id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	for _, col := range sortedKeys(f.Eq) {
		if !spec.hasColumn(col) {
			return nil, &ledger.BackendError{Op: "select", Err: fmt.Errorf("unknown column %q", col)}
		}
		where = append(where, col+" = ?")
		args = append(args, f.Eq[col])
	}

	query := "SELECT " + strings.Join(spec.columns, ", ") + " FROM " + spec.name
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, &ledger.BackendError{Op: "select " + spec.name, Err: err}
	}
	defer rows.Close()

	var out []ledger.Row
	for rows.Next() {
		vals := make([]any, len(spec.columns))
		ptrs := make([]any, len(spec.columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &ledger.BackendError{Op: "scan " + spec.name, Err: err}
		}
		row := make(ledger.Row, len(spec.columns))
		for i, col := range spec.columns {
			row[col] = normalize(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.BackendError{Op: "select " + spec.name, Err: err}
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, kind ledger.Kind, rows []ledger.Row) ([]ledger.Row, error) {
	spec, ok := tables[kind]
	if !ok {
		return nil, &ledger.BackendError{Op: "insert", Err: fmt.Errorf("unknown kind %q", kind)}
	}

	query := "INSERT INTO " + spec.name + " (" + strings.Join(spec.columns, ", ") +
		") VALUES (" + placeholders(len(spec.columns)) + ")"
	query = s.rebind(query)

	inserted := make([]ledger.Row, 0, len(rows))
	for _, row := range rows {
		r := row.Clone()
		if r.String("id") == "" {
			r["id"] = uuid.NewString()
		}
		args := make([]any, 0, len(spec.columns))
		for _, col := range spec.columns {
			args = append(args, bindValue(r[col]))
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return nil, &ledger.BackendError{Op: "insert " + spec.name, Err: err}
		}
		inserted = append(inserted, r)
	}
	return inserted, nil
}

func (s *Store) Update(ctx context.Context, kind ledger.Kind, owner string, ids []string, patch ledger.Row) error {
	spec, ok := tables[kind]
	if !ok {
		return &ledger.BackendError{Op: "update", Err: fmt.Errorf("unknown kind %q", kind)}
	}
	if len(ids) == 0 {
		return nil
	}

	var (
		sets []string
		args []any
	)
	for _, col := range sortedKeys(patch) {
		if col == "id" || !spec.hasColumn(col) {
			continue
		}
		sets = append(sets, col+" = ?")
		args = append(args, bindValue(patch[col]))
	}
	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE " + spec.name + " SET " + strings.Join(sets, ", ") +
		" WHERE user_id = ? AND id IN (" + placeholders(len(ids)) + ")"
	args = append(args, owner)
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return &ledger.BackendError{Op: "update " + spec.name, Err: err}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, kind ledger.Kind, owner string, ids []string) error {
	spec, ok := tables[kind]
	if !ok {
		return &ledger.BackendError{Op: "delete", Err: fmt.Errorf("unknown kind %q", kind)}
	}
	if len(ids) == 0 {
		return nil
	}
	query := "DELETE FROM " + spec.name +
		" WHERE user_id = ? AND id IN (" + placeholders(len(ids)) + ")"
	args := make([]any, 0, len(ids)+1)
	args = append(args, owner)
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return &ledger.BackendError{Op: "delete " + spec.name, Err: err}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (t tableSpec) hasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// bindValue converts Row values to driver-friendly bind parameters.
// Empty strings for reference columns become NULL so foreign keys treat
// "unset" as absent rather than a dangling "".
func bindValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if x == "" {
			return nil
		}
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		// decimal.Decimal implements driver.Valuer; ints and floats pass
		// through as-is.
		return v
	}
}

// normalize flattens scanned values into the shapes ledger.Row expects.
func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case nil:
		return nil
	default:
		return v
	}
}
