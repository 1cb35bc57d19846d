package service

import (
	"context"
	"errors"
	"fmt"

	"git.sr.ht/~jakintosh/rallyauth/internal/metrics"
	"git.sr.ht/~jakintosh/rallyauth/pkg/tokens"
)

type RefreshResult struct {
	Tokens TokenPair
}

// Refresh exchanges a refresh token for a new access token and a rotated
// refresh token. The old refresh token stays valid until it expires.
func (s *Service) Refresh(
	ctx context.Context,
	encodedRefreshToken string,
) (
	*RefreshResult,
	error,
) {
	token, err := s.tokenVerifier.VerifyRefreshToken(encodedRefreshToken)
	if err != nil {
		s.log.Warn("refresh rejected", "reason", tokens.Reason(err))
		s.metrics.ObserveRefresh(metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: couldn't verify refresh token", ErrUnauthorized)
	}

	user, err := s.activeUser(ctx, token.Subject())
	if err != nil {
		s.log.Warn("refresh rejected", "user_id", token.Subject(), "token_id", token.TokenID(), "reason", err)
		s.metrics.ObserveRefresh(metrics.OutcomeRejected)
		return nil, err
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		s.log.Error("refresh failed", "user_id", user.ID, "error", err)
		s.metrics.ObserveRefresh(metrics.OutcomeError)
		return nil, fmt.Errorf("%w: refresh failed", ErrUnauthorized)
	}

	s.metrics.ObserveRefresh(metrics.OutcomeSuccess)
	return &RefreshResult{Tokens: *pair}, nil
}

// Logout always succeeds. Refresh tokens are stateless, so there is nothing
// to revoke; the call is recorded for audit when the token decodes.
func (s *Service) Logout(
	ctx context.Context,
	encodedRefreshToken string,
) {
	token, err := s.tokenVerifier.VerifyRefreshToken(encodedRefreshToken)
	if err != nil {
		s.log.Info("logout", "reason", tokens.Reason(err))
		return
	}
	s.log.Info("logout", "user_id", token.Subject(), "token_id", token.TokenID())
}

// Verify resolves an access token to its user.
func (s *Service) Verify(
	ctx context.Context,
	encodedAccessToken string,
) (
	*User,
	error,
) {
	if encodedAccessToken == "" {
		s.metrics.ObserveVerify(metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: missing access token", ErrUnauthorized)
	}

	token, err := s.tokenVerifier.VerifyAccessToken(encodedAccessToken)
	if err != nil {
		s.log.Debug("access token rejected", "reason", tokens.Reason(err))
		s.metrics.ObserveVerify(metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: couldn't verify access token", ErrUnauthorized)
	}

	user, err := s.activeUser(ctx, token.Subject())
	if err != nil {
		s.log.Warn("verify rejected", "user_id", token.Subject(), "reason", err)
		s.metrics.ObserveVerify(metrics.OutcomeRejected)
		return nil, err
	}

	s.metrics.ObserveVerify(metrics.OutcomeSuccess)
	return user, nil
}

// activeUser loads the subject of a verified token. A user that no longer
// exists is an auth failure, not a lookup failure.
func (s *Service) activeUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: user not found", ErrUnauthorized)
	}
	if err != nil {
		s.log.Error("failed to load user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: failed to load user", ErrUnauthorized)
	}
	return user, nil
}
