package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Store is the SQLite-backed ledger store. A single connection is kept open
// so every write is serialized.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	// Immediate transactions take the write lock at BEGIN, so a balance
	// read inside one cannot be invalidated before its insert.
	db, err := sql.Open("sqlite", dbPath+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS task_definitions (
		id                     TEXT PRIMARY KEY,
		name                   TEXT NOT NULL,
		mandatory              INTEGER NOT NULL DEFAULT 0,
		reward_coins           INTEGER NOT NULL DEFAULT 0,
		recurring_reward_coins INTEGER,
		recurrence             TEXT NOT NULL DEFAULT 'DAILY',
		max_executions_per_day INTEGER,
		archived               INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS task_executions (
		id                 TEXT PRIMARY KEY,
		task_definition_id TEXT NOT NULL REFERENCES task_definitions(id),
		date               TEXT NOT NULL,
		time               TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL DEFAULT 'DONE',
		coins_awarded      INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_executions_task_date ON task_executions(task_definition_id, date);
	CREATE INDEX IF NOT EXISTS idx_executions_date      ON task_executions(date);

	CREATE TABLE IF NOT EXISTS reward_definitions (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		coin_cost   INTEGER NOT NULL DEFAULT 0,
		archived    INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS reward_redemptions (
		id                   TEXT PRIMARY KEY,
		reward_definition_id TEXT NOT NULL REFERENCES reward_definitions(id),
		redeemed_at          TEXT NOT NULL,
		coins_spent          INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS tracked_apps (
		id                          TEXT PRIMARY KEY,
		name                        TEXT NOT NULL,
		package_name                TEXT NOT NULL UNIQUE,
		cost_per_minute             REAL NOT NULL DEFAULT 0,
		purchased_minutes_total     INTEGER NOT NULL DEFAULT 0,
		blocked                     INTEGER NOT NULL DEFAULT 0,
		night_override_enabled      INTEGER NOT NULL DEFAULT 0,
		night_override_activated_at TEXT
	);

	CREATE TABLE IF NOT EXISTS app_usage_aggregates (
		id                     TEXT PRIMARY KEY,
		app_id                 TEXT NOT NULL REFERENCES tracked_apps(id),
		date                   TEXT NOT NULL,
		used_minutes_automatic INTEGER NOT NULL DEFAULT 0,
		UNIQUE(app_id, date)
	);

	CREATE TABLE IF NOT EXISTS app_usage_purchases (
		id                TEXT PRIMARY KEY,
		app_id            TEXT NOT NULL REFERENCES tracked_apps(id),
		minutes_purchased INTEGER NOT NULL,
		coins_spent       INTEGER NOT NULL,
		purchased_at      TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_purchases_app ON app_usage_purchases(app_id);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/earntime/earntime.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "earntime", "earntime.db"), nil
}

func newID() string {
	return uuid.NewString()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatInstant renders t the way instants are stored in settings.
func FormatInstant(t time.Time) string {
	return formatTime(t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// withTx runs fn in a transaction, rolling back when it returns an error.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// execer is satisfied by both *sql.DB and *sql.Tx so inserts can run inside
// the import transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
