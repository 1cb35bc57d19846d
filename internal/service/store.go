package service

import "context"

// UserStore persists user records. Deleted users are invisible to every
// lookup. Missing rows are reported as ErrNotFound and uniqueness violations
// on external id or username as ErrConflict.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByExternalID(ctx context.Context, externalID string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
}
