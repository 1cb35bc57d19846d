// Package database provides SQLite persistence for user records.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"git.sr.ht/~jakintosh/rallyauth/internal/service"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ service.UserStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at dbPath and creates the schema. Both
// file paths and "file:" URIs are accepted; ":memory:" gives a private
// in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite", withPragmas(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// every connection to ":memory:" is its own database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func withPragmas(dbPath string) string {
	const pragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + pragmas
	}
	return dbPath + "?" + pragmas
}

func initSchema(db *sql.DB) error {
	if err := initTable(db, "users", `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			external_id   TEXT NOT NULL,
			email         TEXT,
			display_name  TEXT,
			photo_url     TEXT,
			phone_number  TEXT,
			username      TEXT,
			birthday      TEXT,
			gender        TEXT,
			tennis_level  TEXT,
			deleted       INTEGER NOT NULL DEFAULT 0,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		);`,
	); err != nil {
		return err
	}

	if err := initTable(db, "users_external_id_active", `
		CREATE UNIQUE INDEX IF NOT EXISTS users_external_id_active
			ON users (external_id) WHERE deleted = 0;`,
	); err != nil {
		return err
	}

	if err := initTable(db, "users_username_active", `
		CREATE UNIQUE INDEX IF NOT EXISTS users_username_active
			ON users (username) WHERE deleted = 0;`,
	); err != nil {
		return err
	}

	return nil
}

func initTable(
	db *sql.DB,
	name string,
	sql string,
) error {
	if _, err := db.Exec(sql); err != nil {
		return fmt.Errorf("failed to init '%s' schema: %v", name, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
