// Package postgres provides PostgreSQL persistence for user records.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"git.sr.ht/~jakintosh/rallyauth/internal/service"
)

const (
	maxConns        = int32(10)
	minConns        = int32(1)
	maxConnLifetime = time.Hour
	maxConnIdleTime = 30 * time.Minute
	connectTimeout  = 30 * time.Second

	uniqueViolation = "23505"
)

// DB is the subset of a pgx pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type Store struct {
	db  DB
	log *slog.Logger
}

var _ service.UserStore = (*Store)(nil)

// Open connects to databaseURL, verifies the connection and creates the
// schema.
func Open(databaseURL string, logger *slog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = minConns
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := New(pool, logger)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	store.log.Info("database connection established",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database,
		"max_conns", poolConfig.MaxConns)
	return store, nil
}

func New(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:  db,
		log: logger.With("component", "postgres"),
	}
}

func (s *Store) Close() error {
	s.db.Close()
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		external_id   TEXT NOT NULL,
		email         TEXT,
		display_name  TEXT,
		photo_url     TEXT,
		phone_number  TEXT,
		username      TEXT,
		birthday      DATE,
		gender        TEXT,
		tennis_level  TEXT,
		deleted       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_external_id_active
		ON users (external_id) WHERE NOT deleted`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_username_active
		ON users (username) WHERE NOT deleted`,
}

// Migrate creates the users table and its partial unique indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
