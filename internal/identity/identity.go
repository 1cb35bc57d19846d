// Package identity verifies third-party identity tokens. The only provider
// is Firebase Authentication, whose ID tokens are RS256 JWTs signed by
// rotating Google certificates.
package identity

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
)

var (
	ErrInvalidToken = errors.New("invalid identity token")
	ErrUnknownKey   = errors.New("unknown signing key")
)

// Identity is what the provider vouches for about the token holder.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	DisplayName   string
	PhotoURL      string
	PhoneNumber   string
}

// Verifier turns an identity token into a verified Identity.
type Verifier interface {
	VerifyIdentityToken(ctx context.Context, token string) (*Identity, error)
}

// KeySource resolves a token's key id to the public key that signed it.
type KeySource interface {
	PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// StaticKeySource is a fixed key set.
type StaticKeySource map[string]*rsa.PublicKey

func (s StaticKeySource) PublicKey(_ context.Context, kid string) (*rsa.PublicKey, error) {
	key, ok := s[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, kid)
	}
	return key, nil
}
