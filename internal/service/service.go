// Package service implements the business logic of the rallyauth server. It
// exchanges identity-provider tokens for session tokens, keeps the user
// record, and serves profile reads and updates.
package service

import (
	"errors"
	"log/slog"
	"time"

	"git.sr.ht/~jakintosh/rallyauth/internal/identity"
	"git.sr.ht/~jakintosh/rallyauth/internal/metrics"
	"git.sr.ht/~jakintosh/rallyauth/pkg/tokens"
)

var (
	ErrUnauthorized = tokens.ErrUnauthorized
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrInternal     = errors.New("internal error")
)

// Service coordinates the identity provider, the user store and the token
// issuer. It holds no per-request state.
type Service struct {
	users         UserStore
	identities    identity.Verifier
	tokenIssuer   tokens.Issuer
	tokenVerifier tokens.Verifier
	metrics       *metrics.Collector
	log           *slog.Logger
	now           func() time.Time
}

func New(
	users UserStore,
	identities identity.Verifier,
	issuer tokens.Issuer,
	verifier tokens.Verifier,
	collector *metrics.Collector,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:         users,
		identities:    identities,
		tokenIssuer:   issuer,
		tokenVerifier: verifier,
		metrics:       collector,
		log:           logger.With("component", "service"),
		now:           time.Now,
	}
}
