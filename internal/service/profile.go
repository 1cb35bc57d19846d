package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Profile struct {
	User      *User
	Completed bool
}

func (s *Service) GetProfile(
	ctx context.Context,
	userID string,
) (
	*Profile,
	error,
) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, s.storeError(err, "failed to load profile", userID)
	}
	return &Profile{User: user, Completed: user.Completed()}, nil
}

// UpdateProfile sets the onboarding fields. A username already held by a
// different user is a conflict; keeping one's own username is not.
func (s *Service) UpdateProfile(
	ctx context.Context,
	userID string,
	update ProfileUpdate,
) (
	*User,
	error,
) {
	if err := update.validate(); err != nil {
		return nil, err
	}

	holder, err := s.users.FindByUsername(ctx, update.Username)
	switch {
	case err == nil && holder.ID != userID:
		return nil, fmt.Errorf("%w: username is already taken", ErrConflict)
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, s.storeError(err, "failed to check username", userID)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, s.storeError(err, "failed to load profile", userID)
	}

	y, m, d := update.Birthday.Date()
	birthday := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	gender := update.Gender
	username := update.Username
	level := update.TennisLevel

	user.Username = &username
	user.Birthday = &birthday
	user.Gender = &gender
	user.TennisLevel = &level
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: username is already taken", ErrConflict)
		}
		return nil, s.storeError(err, "failed to update profile", userID)
	}

	s.log.Info("profile updated", "user_id", userID)
	return user, nil
}

type UsernameAvailability struct {
	Available bool
}

func (s *Service) CheckUsernameAvailability(
	ctx context.Context,
	username string,
) (
	*UsernameAvailability,
	error,
) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}

	_, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return &UsernameAvailability{Available: false}, nil
	case errors.Is(err, ErrNotFound):
		return &UsernameAvailability{Available: true}, nil
	default:
		return nil, s.storeError(err, "failed to check username", "")
	}
}

func (s *Service) UpdatePhoto(
	ctx context.Context,
	userID string,
	photoURL string,
) (
	*User,
	error,
) {
	photoURL = strings.TrimSpace(photoURL)
	if photoURL == "" {
		return nil, fmt.Errorf("%w: photoURL is required", ErrValidation)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, s.storeError(err, "failed to load profile", userID)
	}

	user.PhotoURL = &photoURL
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, s.storeError(err, "failed to update photo", userID)
	}
	return user, nil
}

// storeError keeps NotFound and Conflict and turns everything else into
// ErrInternal, logging the cause.
func (s *Service) storeError(err error, msg string, userID string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%w: user not found", ErrNotFound)
	case errors.Is(err, ErrConflict):
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	default:
		s.log.Error(msg, "user_id", userID, "error", err)
		return fmt.Errorf("%w: %s", ErrInternal, msg)
	}
}
