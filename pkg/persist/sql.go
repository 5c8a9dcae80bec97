package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Fxcilities/state-pool/pkg/store"
)

// SQLStorage is a SQL-backed storage backend. It works with any
// database/sql compatible driver (PostgreSQL, MySQL, SQLite).
// Requires a table with schema:
//
//	CREATE TABLE statepool_states (
//	    key TEXT PRIMARY KEY,
//	    value BLOB NOT NULL,
//	    updated_at TIMESTAMP NOT NULL
//	);
type SQLStorage struct {
	db        *sql.DB
	tableName string
	dialect   SQLDialect
	timeout   time.Duration
}

// SQLDialect represents the SQL dialect for query generation.
type SQLDialect int

const (
	// DialectPostgreSQL uses PostgreSQL syntax ($1, $2 placeholders).
	DialectPostgreSQL SQLDialect = iota
	// DialectMySQL uses MySQL syntax (? placeholders).
	DialectMySQL
	// DialectSQLite uses SQLite syntax (? placeholders).
	DialectSQLite
)

// SQLStorageOption configures SQLStorage behavior.
type SQLStorageOption func(*sqlStorageConfig)

type sqlStorageConfig struct {
	tableName string
	dialect   SQLDialect
	timeout   time.Duration
}

// WithSQLTableName sets the table name for state storage.
// Default: "statepool_states".
func WithSQLTableName(name string) SQLStorageOption {
	return func(c *sqlStorageConfig) {
		c.tableName = name
	}
}

// WithSQLDialect sets the SQL dialect for query generation.
// Default: DialectSQLite.
func WithSQLDialect(dialect SQLDialect) SQLStorageOption {
	return func(c *sqlStorageConfig) {
		c.dialect = dialect
	}
}

// WithSQLTimeout bounds each storage operation. The store invokes hooks
// synchronously, so this is the longest a state mutation can block on the
// database. Default: 10 seconds.
func WithSQLTimeout(d time.Duration) SQLStorageOption {
	return func(c *sqlStorageConfig) {
		c.timeout = d
	}
}

// NewSQLStorage creates a new SQL-backed storage backend.
func NewSQLStorage(db *sql.DB, opts ...SQLStorageOption) *SQLStorage {
	cfg := &sqlStorageConfig{
		tableName: "statepool_states",
		dialect:   DialectSQLite,
		timeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &SQLStorage{
		db:        db,
		tableName: cfg.tableName,
		dialect:   cfg.dialect,
		timeout:   cfg.timeout,
	}
}

// opContext returns the bounded context for one storage operation.
func (s *SQLStorage) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Save serializes value and upserts it under key.
func (s *SQLStorage) Save(key string, value any, isInitialSet bool) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}

	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = NOW()
		`, s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (`+"`key`"+`, value, updated_at)
			VALUES (?, ?, NOW())
			ON DUPLICATE KEY UPDATE
				value = VALUES(value),
				updated_at = NOW()
		`, s.tableName)
	case DialectSQLite:
		query = fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (key, value, updated_at)
			VALUES (?, ?, datetime('now'))
		`, s.tableName)
	}

	ctx, cancel := s.opContext()
	defer cancel()
	_, err = s.db.ExecContext(ctx, query, key, b)
	return err
}

// Load returns the saved raw value for key, found=false when absent.
func (s *SQLStorage) Load(key string) (any, bool, error) {
	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`SELECT value FROM %s WHERE `+"`key`"+` = ?`, s.tableName)
	case DialectSQLite:
		query = fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, s.tableName)
	}

	ctx, cancel := s.opContext()
	defer cancel()

	var b []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&b)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return json.RawMessage(b), true, nil
}

// Remove deletes the saved value for key. Removing an absent key is not
// an error.
func (s *SQLStorage) Remove(key string) error {
	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`DELETE FROM %s WHERE `+"`key`"+` = ?`, s.tableName)
	case DialectSQLite:
		query = fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.tableName)
	}

	ctx, cancel := s.opContext()
	defer cancel()
	_, err := s.db.ExecContext(ctx, query, key)
	return err
}

// Clear deletes every saved value.
func (s *SQLStorage) Clear() error {
	query := fmt.Sprintf(`DELETE FROM %s`, s.tableName)

	ctx, cancel := s.opContext()
	defer cancel()
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Entries returns all saved key/value pairs.
func (s *SQLStorage) Entries() (map[string]json.RawMessage, error) {
	var query string
	switch s.dialect {
	case DialectMySQL:
		query = fmt.Sprintf(`SELECT `+"`key`"+`, value FROM %s`, s.tableName)
	default:
		query = fmt.Sprintf(`SELECT key, value FROM %s`, s.tableName)
	}

	ctx, cancel := s.opContext()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key string
		var b []byte
		if err := rows.Scan(&key, &b); err != nil {
			return nil, err
		}
		out[key] = json.RawMessage(b)
	}
	return out, rows.Err()
}

// Config returns the storage wired as store persistence hooks.
func (s *SQLStorage) Config() store.Config {
	return store.Config{
		SaveState:    s.Save,
		LoadState:    s.Load,
		RemoveState:  s.Remove,
		ClearStorage: s.Clear,
	}
}

// CreateTable creates the state table if it doesn't exist.
// This is a convenience method for development/testing.
func (s *SQLStorage) CreateTable(ctx context.Context) error {
	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				key VARCHAR(255) PRIMARY KEY,
				value BYTEA NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)
		`, s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				`+"`key`"+` VARCHAR(255) PRIMARY KEY,
				value BLOB NOT NULL,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`, s.tableName)
	case DialectSQLite:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				key TEXT PRIMARY KEY,
				value BLOB NOT NULL,
				updated_at TEXT NOT NULL DEFAULT (datetime('now'))
			)
		`, s.tableName)
	}

	_, err := s.db.ExecContext(ctx, query)
	return err
}
