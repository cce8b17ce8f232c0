package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/mhpenta/wallpapergen"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// DBFileName is the SQLite database file inside the data directory.
const DBFileName = "wallpapergen.db"

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore keeps records in a SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Ensure SQLiteStore implements RecordStore.
var _ wallpapergen.RecordStore = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at dsn and applies migrations.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases and writers consistent.
	db.SetMaxOpenConns(1)

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Migrate applies the embedded schema migrations to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Get returns the named record.
func (s *SQLiteStore) Get(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM records WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", wallpapergen.ErrRecordNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get record[%s]: %w", name, err)
	}
	return value, nil
}

// Put creates or replaces the named record.
func (s *SQLiteStore) Put(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, name, value, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to set record[%s]: %w", name, err)
	}
	return nil
}

// Delete removes the named record.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete record[%s]: %w", name, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
