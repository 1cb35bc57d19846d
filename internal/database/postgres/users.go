package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"git.sr.ht/~jakintosh/rallyauth/internal/service"
)

const userColumns = "id, external_id, email, display_name, photo_url, phone_number, " +
	"username, birthday, gender, tennis_level, deleted, created_at, updated_at"

func (s *Store) FindByID(ctx context.Context, id string) (*service.User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND NOT deleted`,
		id,
	)
	return scanUser(row)
}

func (s *Store) FindByExternalID(ctx context.Context, externalID string) (*service.User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_id = $1 AND NOT deleted`,
		externalID,
	)
	return scanUser(row)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*service.User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 AND NOT deleted`,
		username,
	)
	return scanUser(row)
}

func (s *Store) Create(ctx context.Context, user *service.User) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		user.ID,
		user.ExternalID,
		user.Email,
		user.DisplayName,
		user.PhotoURL,
		user.PhoneNumber,
		user.Username,
		user.Birthday,
		genderValue(user.Gender),
		user.TennisLevel,
		user.Deleted,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: user already exists", service.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, user *service.User) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users
		SET email = $1, display_name = $2, photo_url = $3, phone_number = $4,
			username = $5, birthday = $6, gender = $7, tennis_level = $8, updated_at = $9
		WHERE id = $10 AND NOT deleted`,
		user.Email,
		user.DisplayName,
		user.PhotoURL,
		user.PhoneNumber,
		user.Username,
		user.Birthday,
		genderValue(user.Gender),
		user.TennisLevel,
		user.UpdatedAt,
		user.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username already taken", service.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", service.ErrNotFound, user.ID)
	}
	return nil
}

// SoftDelete marks a user deleted. The row is kept but no lookup sees it.
func (s *Store) SoftDelete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET deleted = TRUE, updated_at = $1 WHERE id = $2 AND NOT deleted`,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", service.ErrNotFound, id)
	}
	return nil
}

func scanUser(row pgx.Row) (*service.User, error) {
	var (
		user     service.User
		birthday *time.Time
		gender   *string
	)
	err := row.Scan(
		&user.ID,
		&user.ExternalID,
		&user.Email,
		&user.DisplayName,
		&user.PhotoURL,
		&user.PhoneNumber,
		&user.Username,
		&birthday,
		&gender,
		&user.TennisLevel,
		&user.Deleted,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if gender != nil {
		g := service.Gender(*gender)
		user.Gender = &g
	}
	if birthday != nil {
		y, m, d := birthday.Date()
		b := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		user.Birthday = &b
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()

	return &user, nil
}

func genderValue(g *service.Gender) *string {
	if g == nil {
		return nil
	}
	s := string(*g)
	return &s
}
