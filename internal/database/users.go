package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/rallyauth/internal/service"
)

const userColumns = `
	id, external_id, email, display_name, photo_url, phone_number,
	username, birthday, gender, tennis_level, deleted, created_at, updated_at`

func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*service.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT`+userColumns+`
		FROM users
		WHERE id=? AND deleted=0;`,
		id,
	)
	return scanUser(row)
}

func (s *SQLiteStore) FindByExternalID(ctx context.Context, externalID string) (*service.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT`+userColumns+`
		FROM users
		WHERE external_id=? AND deleted=0;`,
		externalID,
	)
	return scanUser(row)
}

func (s *SQLiteStore) FindByUsername(ctx context.Context, username string) (*service.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT`+userColumns+`
		FROM users
		WHERE username=? AND deleted=0;`,
		username,
	)
	return scanUser(row)
}

func (s *SQLiteStore) Create(ctx context.Context, user *service.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		user.ID,
		user.ExternalID,
		nullString(user.Email),
		nullString(user.DisplayName),
		nullString(user.PhotoURL),
		nullString(user.PhoneNumber),
		nullString(user.Username),
		nullDate(user.Birthday),
		nullGender(user.Gender),
		nullString(user.TennisLevel),
		user.Deleted,
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: user already exists", service.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("couldn't insert into users: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, user *service.User) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email=?, display_name=?, photo_url=?, phone_number=?,
			username=?, birthday=?, gender=?, tennis_level=?, updated_at=?
		WHERE id=? AND deleted=0;`,
		nullString(user.Email),
		nullString(user.DisplayName),
		nullString(user.PhotoURL),
		nullString(user.PhoneNumber),
		nullString(user.Username),
		nullDate(user.Birthday),
		nullGender(user.Gender),
		nullString(user.TennisLevel),
		toMillis(user.UpdatedAt),
		user.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username already taken", service.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("couldn't update users: %w", err)
	}
	if resultsEmpty(result) {
		return fmt.Errorf("%w: user %s", service.ErrNotFound, user.ID)
	}
	return nil
}

// SoftDelete marks a user deleted. The row is kept but no lookup sees it,
// and its external id and username become free again.
func (s *SQLiteStore) SoftDelete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET deleted=1, updated_at=?
		WHERE id=? AND deleted=0;`,
		toMillis(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("couldn't delete from users: %w", err)
	}
	if resultsEmpty(result) {
		return fmt.Errorf("%w: user %s", service.ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*service.User, error) {
	var (
		user                                      service.User
		email, displayName, photoURL, phoneNumber sql.NullString
		username, birthday, gender, tennisLevel   sql.NullString
		createdAt, updatedAt                      int64
	)
	err := row.Scan(
		&user.ID,
		&user.ExternalID,
		&email,
		&displayName,
		&photoURL,
		&phoneNumber,
		&username,
		&birthday,
		&gender,
		&tennisLevel,
		&user.Deleted,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't scan user: %w", err)
	}

	user.Email = stringPtr(email)
	user.DisplayName = stringPtr(displayName)
	user.PhotoURL = stringPtr(photoURL)
	user.PhoneNumber = stringPtr(phoneNumber)
	user.Username = stringPtr(username)
	user.TennisLevel = stringPtr(tennisLevel)
	if gender.Valid {
		g := service.Gender(gender.String)
		user.Gender = &g
	}
	if birthday.Valid {
		b, err := time.Parse(service.DateLayout, birthday.String)
		if err != nil {
			return nil, fmt.Errorf("couldn't parse birthday: %w", err)
		}
		user.Birthday = &b
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)

	return &user, nil
}

func resultsEmpty(result sql.Result) bool {
	rows, err := result.RowsAffected()
	return err != nil || rows == 0
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(service.DateLayout), Valid: true}
}

func nullGender(g *service.Gender) sql.NullString {
	if g == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*g), Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
