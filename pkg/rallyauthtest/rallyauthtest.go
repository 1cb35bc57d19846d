// Package rallyauthtest mints rallyauth sessions for the tests of services
// that accept rallyauth tokens, without running the server.
package rallyauthtest

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"time"

	"git.sr.ht/~jakintosh/rallyauth/pkg/tokens"
)

// Keys holds cryptographic keys for testing.
type Keys struct {
	SigningKey      *rsa.PrivateKey
	VerificationKey *rsa.PublicKey
	Issuer          string
	Audience        string
}

// Session holds token strings and metadata for a test session.
type Session struct {
	UserID           string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// NewKeys generates a new RSA keypair for testing, using the default
// issuer and audience.
func NewKeys() (*Keys, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, tokens.DefaultKeyBits)
	if err != nil {
		return nil, err
	}

	return &Keys{
		SigningKey:      privateKey,
		VerificationKey: &privateKey.PublicKey,
		Issuer:          tokens.DefaultIssuer,
		Audience:        tokens.DefaultAudience,
	}, nil
}

// Verifier returns a verify-only token server for keys, as a downstream
// service would build from the public key.
func (keys *Keys) Verifier() (tokens.Verifier, error) {
	return tokens.InitVerifier(keys.VerificationKey, keys.Issuer, keys.Audience)
}

// NewSession mints an access and refresh token for userID. Lifetimes of
// zero use the server defaults; a negative access lifetime yields an
// already expired access token.
func NewSession(keys *Keys, userID, email string, accessLifetime, refreshLifetime time.Duration) (*Session, error) {
	issuer, _, err := tokens.InitServer(tokens.Config{
		SigningKey:      keys.SigningKey,
		Issuer:          keys.Issuer,
		Audience:        keys.Audience,
		AccessLifetime:  accessLifetime,
		RefreshLifetime: refreshLifetime,
	})
	if err != nil {
		return nil, err
	}

	accessToken, err := issuer.IssueAccessToken(userID, email)
	if err != nil {
		return nil, err
	}
	refreshToken, err := issuer.IssueRefreshToken(userID)
	if err != nil {
		return nil, err
	}

	return &Session{
		UserID:           userID,
		AccessToken:      accessToken.Encoded(),
		RefreshToken:     refreshToken.Encoded(),
		AccessExpiresAt:  accessToken.Expiration(),
		RefreshExpiresAt: refreshToken.Expiration(),
	}, nil
}

// Authorize sets the session's bearer token on req.
func Authorize(req *http.Request, sess *Session) {
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
}
