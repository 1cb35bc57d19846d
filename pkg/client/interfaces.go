package client

import (
	"context"
	"net/http"

	"git.sr.ht/~jakintosh/rallyauth/pkg/tokens"
)

// Verifier validates authorization from HTTP requests.
// Consuming projects should depend on this interface rather than *Client
// to enable testing with mock implementations.
type Verifier interface {
	VerifyAuthorization(r *http.Request) (*tokens.AccessToken, error)
	Middleware(next http.Handler) http.Handler
}

// Refresher exchanges refresh tokens with the auth server.
type Refresher interface {
	RefreshTokens(ctx context.Context, refreshToken string) (*Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
}

// AuthClient exposes both.
type AuthClient interface {
	Verifier
	Refresher
}

var (
	_ Verifier   = (*Client)(nil)
	_ Refresher  = (*Client)(nil)
	_ AuthClient = (*Client)(nil)
)
