package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"git.sr.ht/~jakintosh/rallyauth/internal/identity"
	"git.sr.ht/~jakintosh/rallyauth/internal/metrics"
)

// TokenPair is what a client holds between requests.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

type LoginResult struct {
	User      *User
	Tokens    TokenPair
	Completed bool
}

// Login exchanges an identity-provider token for a session. The user record
// is created on first login. Every failure is reported as ErrUnauthorized.
func (s *Service) Login(
	ctx context.Context,
	identityToken string,
) (
	*LoginResult,
	error,
) {
	id, err := s.identities.VerifyIdentityToken(ctx, identityToken)
	if err != nil {
		s.log.Warn("login rejected", "reason", err)
		s.metrics.ObserveLogin(metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: identity token rejected", ErrUnauthorized)
	}

	user, err := s.findOrCreateUser(ctx, id)
	if err != nil {
		s.log.Error("login failed", "external_id", id.Subject, "error", err)
		s.metrics.ObserveLogin(metrics.OutcomeError)
		return nil, fmt.Errorf("%w: login failed", ErrUnauthorized)
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		s.log.Error("login failed", "user_id", user.ID, "error", err)
		s.metrics.ObserveLogin(metrics.OutcomeError)
		return nil, fmt.Errorf("%w: login failed", ErrUnauthorized)
	}

	s.log.Info("login succeeded", "user_id", user.ID)
	s.metrics.ObserveLogin(metrics.OutcomeSuccess)
	return &LoginResult{
		User:      user,
		Tokens:    *pair,
		Completed: user.Completed(),
	}, nil
}

func (s *Service) findOrCreateUser(
	ctx context.Context,
	id *identity.Identity,
) (
	*User,
	error,
) {
	user, err := s.users.FindByExternalID(ctx, id.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now().UTC()
	user = &User{
		ID:          uuid.NewString(),
		ExternalID:  id.Subject,
		Email:       optional(id.Email),
		DisplayName: optional(id.DisplayName),
		PhotoURL:    optional(id.PhotoURL),
		PhoneNumber: optional(id.PhoneNumber),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user created", "user_id", user.ID, "external_id", user.ExternalID)
	s.metrics.UserCreated()
	return user, nil
}

func (s *Service) issueTokenPair(user *User) (*TokenPair, error) {
	email := ""
	if user.Email != nil {
		email = *user.Email
	}

	accessToken, err := s.tokenIssuer.IssueAccessToken(user.ID, email)
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't issue access token: %v", ErrInternal, err)
	}
	refreshToken, err := s.tokenIssuer.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't issue refresh token: %v", ErrInternal, err)
	}

	return &TokenPair{
		AccessToken:  accessToken.Encoded(),
		RefreshToken: refreshToken.Encoded(),
		ExpiresIn:    accessToken.ExpiresIn(),
	}, nil
}
