// Package postgres stores designer documents in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"

	dashboard "github.com/goliatone/go-dashboard-designer/components/dashboard"
)

// DefaultTable holds one row per blob key.
const DefaultTable = "designer_blobs"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Options configures a BlobStore.
type Options struct {
	Table string
}

// BlobStore implements dashboard.BlobStore on a single key/value table.
type BlobStore struct {
	db    *sql.DB
	table string
}

var _ dashboard.BlobStore = (*BlobStore)(nil)

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	return db, nil
}

// NewBlobStore wraps db. Call Migrate before first use.
func NewBlobStore(db *sql.DB, opts Options) (*BlobStore, error) {
	if db == nil {
		return nil, errors.New("postgres: database is required")
	}
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("postgres: invalid table name %q", table)
	}
	return &BlobStore{db: db, table: table}, nil
}

// Migrate creates the blob table when missing.
func (s *BlobStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("postgres: create %s: %w", s.table, err)
	}
	return nil
}

// Read returns nil data when the key was never written.
func (s *BlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	query := fmt.Sprintf(`SELECT data FROM %s WHERE key = $1`, s.table)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: read %s: %w", key, err)
	}
	return data, nil
}

// Write upserts the document of key.
func (s *BlobStore) Write(ctx context.Context, key string, data []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("postgres: write %s: %w", key, err)
	}
	return nil
}
