/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements revision.Store plus the order directory, user roster, and
  workflow configuration tables the API layer needs. The same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The audit_log table is append-only:
  - Rows are inserted with INSERT OR IGNORE keyed by entry id, so saving
    a revision twice never duplicates or rewrites history
  - No UPDATE statements on audit_log
  - DeleteRevision removes only the revisions row; the order's audit
    trail survives, which is how discarded drafts stay on the timeline

KEY TABLES:
  revisions: One row per revision; line items, changes, chain, and cycle
             history as JSON columns
  audit_log: Append-only record of every action, ordered by seq
  orders:    Order directory (number, kind, counterparty)
  users:     Roster with roles and approver levels
  workflows: Named workflow configurations as JSON

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./data/revisions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := revision.NewService(store, workflow)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - revision/store.go: Interface definition
  - revision/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/revision-engine/orders"
	"github.com/warp/revision-engine/revision"
)

// Store implements revision.Store and the directory tables using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Revisions (one row per revision; draft-family rows are mutable,
	-- confirmed rows never change again)
	CREATE TABLE IF NOT EXISTS revisions (
		id TEXT PRIMARY KEY,
		order_number TEXT NOT NULL,
		version_major INTEGER NOT NULL,
		version_minor INTEGER NOT NULL,
		status TEXT NOT NULL,
		lines_json TEXT NOT NULL,
		changes_json TEXT,
		changes_summary TEXT,
		chain_json TEXT,
		history_json TEXT,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		base_major INTEGER NOT NULL,
		base_minor INTEGER NOT NULL,
		base_total TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_revisions_order
		ON revisions(order_number);
	CREATE INDEX IF NOT EXISTS idx_revisions_order_status
		ON revisions(order_number, status);

	-- At most one draft-family revision per order
	CREATE UNIQUE INDEX IF NOT EXISTS idx_revisions_one_draft
		ON revisions(order_number)
		WHERE status != 'confirmed';

	-- Audit log (append-only; seq preserves insertion order)
	CREATE TABLE IF NOT EXISTS audit_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		order_number TEXT NOT NULL,
		revision_id TEXT NOT NULL,
		action TEXT NOT NULL,
		status TEXT NOT NULL,
		at TEXT NOT NULL,
		actor TEXT NOT NULL,
		role TEXT,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_order
		ON audit_log(order_number);
	CREATE INDEX IF NOT EXISTS idx_audit_revision
		ON audit_log(revision_id);

	-- Orders
	CREATE TABLE IF NOT EXISTS orders (
		number TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		counterparty TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'USD',
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	-- Users (roster with approver levels)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		is_approver BOOLEAN DEFAULT FALSE,
		approver_level INTEGER DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Workflow configurations (JSON, editable without code changes)
	CREATE TABLE IF NOT EXISTS workflows (
		name TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REVISION STORE (revision.Store interface)
// =============================================================================

// SaveRevision upserts the revision row and appends its audit entries in
// one transaction.
func (s *Store) SaveRevision(ctx context.Context, rev *revision.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := s.upsertRevision(ctx, sqlTx, rev); err != nil {
		return err
	}
	if err := s.appendAudit(ctx, sqlTx, rev.Audit); err != nil {
		return err
	}

	return sqlTx.Commit()
}

func (s *Store) upsertRevision(ctx context.Context, tx *sql.Tx, rev *revision.Revision) error {
	linesJSON, _ := json.Marshal(rev.Lines)
	changesJSON, _ := json.Marshal(rev.Changes)
	historyJSON, _ := json.Marshal(rev.History)
	var chainJSON sql.NullString
	if rev.Chain != nil {
		b, _ := json.Marshal(rev.Chain)
		chainJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := `
		INSERT INTO revisions
		(id, order_number, version_major, version_minor, status, lines_json, changes_json,
		 changes_summary, chain_json, history_json, created_by, created_at,
		 base_major, base_minor, base_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version_major = excluded.version_major,
			version_minor = excluded.version_minor,
			status = excluded.status,
			lines_json = excluded.lines_json,
			changes_json = excluded.changes_json,
			changes_summary = excluded.changes_summary,
			chain_json = excluded.chain_json,
			history_json = excluded.history_json
	`

	_, err := tx.ExecContext(ctx, query,
		rev.ID,
		rev.OrderNumber,
		rev.Version.Major,
		rev.Version.Minor,
		rev.Status,
		string(linesJSON),
		string(changesJSON),
		rev.ChangesSummary,
		chainJSON,
		string(historyJSON),
		rev.CreatedBy,
		rev.CreatedAt.Format(time.RFC3339Nano),
		rev.BaseVersion.Major,
		rev.BaseVersion.Minor,
		rev.BaseTotal.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save revision: %w", err)
	}
	return nil
}

func (s *Store) appendAudit(ctx context.Context, tx *sql.Tx, entries []revision.AuditEntry) error {
	query := `
		INSERT OR IGNORE INTO audit_log
		(id, order_number, revision_id, action, status, at, actor, role, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, e := range entries {
		_, err := tx.ExecContext(ctx, query,
			e.ID, e.OrderNumber, e.RevisionID, e.Action, e.Status,
			e.At.Format(time.RFC3339Nano), e.Actor, e.Role, nullString(e.Notes),
		)
		if err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
	}
	return nil
}

// GetDraft returns the order's draft-family revision, or (nil, nil).
func (s *Store) GetDraft(ctx context.Context, order revision.OrderNumber) (*revision.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectRevision + ` WHERE order_number = ? AND status != 'confirmed'`
	rev, err := s.queryOneRevision(ctx, query, order)
	if err != nil {
		return nil, err
	}
	return rev, nil
}

// GetRevision returns a revision by id.
func (s *Store) GetRevision(ctx context.Context, id revision.RevisionID) (*revision.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rev, err := s.queryOneRevision(ctx, selectRevision+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if rev == nil {
		return nil, &revision.NotFoundError{Kind: "revision", Key: string(id)}
	}
	return rev, nil
}

// DeleteRevision removes the revision row. Audit rows are retained; any
// unsaved entries on rev are appended first.
func (s *Store) DeleteRevision(ctx context.Context, rev *revision.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := s.appendAudit(ctx, sqlTx, rev.Audit); err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM revisions WHERE id = ?", rev.ID); err != nil {
		return fmt.Errorf("failed to delete revision: %w", err)
	}

	return sqlTx.Commit()
}

// History returns the order's confirmed revisions, version ascending.
func (s *Store) History(ctx context.Context, order revision.OrderNumber) ([]*revision.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectRevision + `
		WHERE order_number = ? AND status = 'confirmed'
		ORDER BY version_major ASC, version_minor ASC
	`
	return s.queryRevisions(ctx, query, order)
}

// Active returns the order's latest confirmed revision, or (nil, nil).
func (s *Store) Active(ctx context.Context, order revision.OrderNumber) (*revision.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectRevision + `
		WHERE order_number = ? AND status = 'confirmed'
		ORDER BY version_major DESC, version_minor DESC
		LIMIT 1
	`
	return s.queryOneRevision(ctx, query, order)
}

// Timeline returns every audit entry for the order, oldest first.
func (s *Store) Timeline(ctx context.Context, order revision.OrderNumber) ([]revision.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, order_number, revision_id, action, status, at, actor, role, notes
		FROM audit_log
		WHERE order_number = ?
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, order)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []revision.AuditEntry
	for rows.Next() {
		var e revision.AuditEntry
		var at string
		var role, notes sql.NullString
		if err := rows.Scan(&e.ID, &e.OrderNumber, &e.RevisionID, &e.Action, &e.Status,
			&at, &e.Actor, &role, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		e.Role = revision.Role(role.String)
		e.Notes = notes.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const selectRevision = `
	SELECT id, order_number, version_major, version_minor, status, lines_json, changes_json,
	       changes_summary, chain_json, history_json, created_by, created_at,
	       base_major, base_minor, base_total
	FROM revisions
`

func (s *Store) queryOneRevision(ctx context.Context, query string, args ...any) (*revision.Revision, error) {
	revs, err := s.queryRevisions(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		return nil, nil
	}
	return revs[0], nil
}

func (s *Store) queryRevisions(ctx context.Context, query string, args ...any) ([]*revision.Revision, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	var revs []*revision.Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Attach each revision's own audit entries, in insertion order.
	for _, rev := range revs {
		audit, err := s.auditForRevision(ctx, rev.ID)
		if err != nil {
			return nil, err
		}
		rev.Audit = audit
	}
	return revs, nil
}

func scanRevision(rows *sql.Rows) (*revision.Revision, error) {
	var (
		rev                        revision.Revision
		linesJSON                  string
		changesJSON, chainJSON     sql.NullString
		summary, historyJSON       sql.NullString
		createdAt, baseTotal       string
		versionMajor, versionMinor int
		baseMajor, baseMinor       int
	)

	err := rows.Scan(
		&rev.ID, &rev.OrderNumber, &versionMajor, &versionMinor, &rev.Status,
		&linesJSON, &changesJSON, &summary, &chainJSON, &historyJSON,
		&rev.CreatedBy, &createdAt, &baseMajor, &baseMinor, &baseTotal,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan revision: %w", err)
	}

	rev.Version = revision.NewVersion(versionMajor, versionMinor)
	rev.BaseVersion = revision.NewVersion(baseMajor, baseMinor)
	rev.ChangesSummary = summary.String
	rev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rev.BaseTotal, err = decimal.NewFromString(baseTotal)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base total: %w", err)
	}

	if err := json.Unmarshal([]byte(linesJSON), &rev.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode lines: %w", err)
	}
	if changesJSON.Valid && changesJSON.String != "" {
		if err := json.Unmarshal([]byte(changesJSON.String), &rev.Changes); err != nil {
			return nil, fmt.Errorf("failed to decode changes: %w", err)
		}
	}
	if chainJSON.Valid && chainJSON.String != "" {
		rev.Chain = &revision.ApprovalChain{}
		if err := json.Unmarshal([]byte(chainJSON.String), rev.Chain); err != nil {
			return nil, fmt.Errorf("failed to decode chain: %w", err)
		}
	}
	if historyJSON.Valid && historyJSON.String != "" {
		if err := json.Unmarshal([]byte(historyJSON.String), &rev.History); err != nil {
			return nil, fmt.Errorf("failed to decode approval history: %w", err)
		}
	}

	return &rev, nil
}

func (s *Store) auditForRevision(ctx context.Context, id revision.RevisionID) ([]revision.AuditEntry, error) {
	query := `
		SELECT id, order_number, revision_id, action, status, at, actor, role, notes
		FROM audit_log
		WHERE revision_id = ?
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []revision.AuditEntry
	for rows.Next() {
		var e revision.AuditEntry
		var at string
		var role, notes sql.NullString
		if err := rows.Scan(&e.ID, &e.OrderNumber, &e.RevisionID, &e.Action, &e.Status,
			&at, &e.Actor, &role, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		e.Role = revision.Role(role.String)
		e.Notes = notes.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// ORDER DIRECTORY
// =============================================================================

// SaveOrder saves an order record.
func (s *Store) SaveOrder(ctx context.Context, o orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO orders (number, kind, counterparty, currency, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			kind = excluded.kind,
			counterparty = excluded.counterparty,
			currency = excluded.currency
	`

	_, err := s.db.ExecContext(ctx, query,
		o.Number, o.Kind, o.Counterparty, o.Currency, o.CreatedBy,
		o.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// GetOrder retrieves an order by number.
func (s *Store) GetOrder(ctx context.Context, number revision.OrderNumber) (*orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var o orders.Order
	var createdAt string
	var createdBy sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT number, kind, counterparty, currency, created_by, created_at FROM orders WHERE number = ?",
		number,
	).Scan(&o.Number, &o.Kind, &o.Counterparty, &o.Currency, &createdBy, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	o.CreatedBy = revision.UserID(createdBy.String)
	o.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &o, nil
}

// ListOrders returns all orders.
func (s *Store) ListOrders(ctx context.Context) ([]orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT number, kind, counterparty, currency, created_by, created_at FROM orders ORDER BY number",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []orders.Order
	for rows.Next() {
		var o orders.Order
		var createdAt string
		var createdBy sql.NullString
		if err := rows.Scan(&o.Number, &o.Kind, &o.Counterparty, &o.Currency, &createdBy, &createdAt); err != nil {
			return nil, err
		}
		o.CreatedBy = revision.UserID(createdBy.String)
		o.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		result = append(result, o)
	}
	return result, rows.Err()
}

// =============================================================================
// USER ROSTER
// =============================================================================

// SaveUser saves a user.
func (s *Store) SaveUser(ctx context.Context, u revision.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (id, name, role, is_approver, approver_level, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			is_approver = excluded.is_approver,
			approver_level = excluded.approver_level
	`

	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Name, u.Role, u.IsApprover, u.ApproverLevel,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id revision.UserID) (*revision.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u revision.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, role, is_approver, approver_level FROM users WHERE id = ?",
		id,
	).Scan(&u.ID, &u.Name, &u.Role, &u.IsApprover, &u.ApproverLevel)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all users.
func (s *Store) ListUsers(ctx context.Context) ([]revision.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, role, is_approver, approver_level FROM users ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []revision.User
	for rows.Next() {
		var u revision.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Role, &u.IsApprover, &u.ApproverLevel); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// WORKFLOW CONFIG
// =============================================================================

// SaveWorkflow stores a workflow configuration as JSON under a name.
func (s *Store) SaveWorkflow(ctx context.Context, name, configJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO workflows (name, config_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		name, configJSON, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetWorkflow retrieves a workflow configuration JSON by name.
// Returns "" when the name is unknown.
func (s *Store) GetWorkflow(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM workflows WHERE name = ?", name,
	).Scan(&configJSON)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return configJSON, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"revisions", "audit_log", "orders", "users", "workflows"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
