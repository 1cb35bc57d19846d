package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/rallyauth/internal/database"
	"git.sr.ht/~jakintosh/rallyauth/internal/service"
)

func TestUserDelete(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "rallyauth.db")
	t.Setenv("DATABASE_URL", dbPath)
	t.Setenv("JWT_PRIVATE_KEY_FILE", filepath.Join(dir, "private.pem"))
	t.Setenv("JWT_PUBLIC_KEY_FILE", filepath.Join(dir, "public.pem"))
	t.Setenv("FIREBASE_PROJECT_ID", "rallyauth-test")
	t.Setenv("LOG_LEVEL", "error")
	missingEnv := filepath.Join(dir, "missing.env")
	ctx := context.Background()

	// setup a user
	store, err := database.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	now := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.Create(ctx, &service.User{
		ID:         "u1",
		ExternalID: "fb-alice",
		CreatedAt:  now,
		UpdatedAt:  now,
	}))
	require.NoError(t, store.Close())

	// delete through the command
	out, err := runCmd(t, "--env-file", missingEnv, "user", "delete", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted user u1")

	// the user is gone
	store, err = database.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	_, err = store.FindByID(ctx, "u1")
	assert.ErrorIs(t, err, service.ErrNotFound)

	// deleting again reports not found
	_, err = runCmd(t, "--env-file", missingEnv, "user", "delete", "u1")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestUserDelete_RequiresID(t *testing.T) {
	t.Parallel()

	// exactly one argument
	_, err := runCmd(t, "user", "delete")
	assert.Error(t, err)
}
