package main

import (
	"context"
	"log/slog"

	"git.sr.ht/~jakintosh/rallyauth/internal/config"
	"git.sr.ht/~jakintosh/rallyauth/internal/database"
	"git.sr.ht/~jakintosh/rallyauth/internal/database/postgres"
	"git.sr.ht/~jakintosh/rallyauth/internal/service"
)

type userStore interface {
	service.UserStore
	SoftDelete(ctx context.Context, id string) error
	Close() error
}

// openStore picks PostgreSQL for postgres:// URLs and SQLite otherwise.
func openStore(cfg *config.Config, logger *slog.Logger) (userStore, error) {
	if cfg.UsesPostgres() {
		store, err := postgres.Open(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := database.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return store, nil
}
