package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"git.sr.ht/~jakintosh/rallyauth/pkg/tokens"
)

var (
	ErrNoToken       = errors.New("no token")
	ErrTokenInvalid  = errors.New("invalid token")
	ErrTokenRequest  = errors.New("failed to fetch token")
	ErrTokenResponse = errors.New("invalid token response")
)

type Config struct {
	// Verifier checks access tokens locally. Build it with
	// tokens.InitVerifier from the server's public key.
	Verifier tokens.Verifier

	// AuthURL is the server's API root, e.g. "https://auth.example.com/api/v1".
	AuthURL string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client protects a downstream service's routes with rallyauth access
// tokens and exchanges refresh tokens on behalf of its callers.
type Client struct {
	verifier   tokens.Verifier
	authURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.Verifier == nil {
		return nil, fmt.Errorf("client: token verifier is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		verifier:   cfg.Verifier,
		authURL:    strings.TrimRight(cfg.AuthURL, "/"),
		httpClient: cfg.HTTPClient,
		log:        cfg.Logger.With("component", "rallyauth-client"),
	}, nil
}

/*
VerifyAuthorization reads the bearer token from r and verifies it without a
network call.

A nil token means no authorization, and the error will be [ErrNoToken] or
[ErrTokenInvalid].
*/
func (c *Client) VerifyAuthorization(r *http.Request) (*tokens.AccessToken, error) {
	encoded, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(encoded) == "" {
		return nil, ErrNoToken
	}

	token, err := c.verifier.VerifyAccessToken(strings.TrimSpace(encoded))
	if err != nil {
		c.log.Debug("access token rejected", "reason", tokens.Reason(err))
		return nil, ErrTokenInvalid
	}
	return token, nil
}

type tokenKey struct{}

// Middleware rejects requests without a valid access token with 401 and
// passes the verified token on the request context.
func (c *Client) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := c.VerifyAuthorization(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="rallyauth"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), tokenKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessTokenFrom returns the token Middleware verified, if any.
func AccessTokenFrom(ctx context.Context) (*tokens.AccessToken, bool) {
	token, ok := ctx.Value(tokenKey{}).(*tokens.AccessToken)
	return token, ok
}

// Tokens is a fresh pair from the server.
type Tokens struct {
	AccessToken  *tokens.AccessToken
	RefreshToken string
	ExpiresIn    int
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type refreshResponse struct {
	Tokens struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    int    `json:"expiresIn"`
	} `json:"tokens"`
}

/*
RefreshTokens exchanges a refresh token for a new pair.

The error will be [ErrTokenInvalid] when the server refuses the token,
[ErrTokenRequest] when it cannot be reached, or [ErrTokenResponse].
*/
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*Tokens, error) {
	env, err := c.post(ctx, "/auth/refresh", refreshToken)
	if err != nil {
		return nil, err
	}

	var response refreshResponse
	if err := json.Unmarshal(env.Data, &response); err != nil {
		c.log.Error("failed to decode refresh response", "error", err)
		return nil, ErrTokenResponse
	}

	// the server signed it, so it must verify here too
	access, err := c.verifier.VerifyAccessToken(response.Tokens.AccessToken)
	if err != nil {
		c.log.Error("refreshed access token does not verify", "reason", tokens.Reason(err))
		return nil, ErrTokenResponse
	}
	return &Tokens{
		AccessToken:  access,
		RefreshToken: response.Tokens.RefreshToken,
		ExpiresIn:    response.Tokens.ExpiresIn,
	}, nil
}

// Logout tells the server the refresh token is no longer in use.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	_, err := c.post(ctx, "/auth/logout", refreshToken)
	return err
}

func (c *Client) post(ctx context.Context, path string, refreshToken string) (*envelope, error) {
	body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, ErrTokenRequest
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, ErrTokenRequest
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("failed to reach auth server", "path", path, "error", err)
		return nil, ErrTokenRequest
	}
	defer res.Body.Close()

	env := &envelope{}
	if err := json.NewDecoder(res.Body).Decode(env); err != nil {
		c.log.Error("failed to decode auth server response", "path", path, "status", res.StatusCode, "error", err)
		return nil, ErrTokenResponse
	}
	switch {
	case res.StatusCode == http.StatusUnauthorized:
		return nil, ErrTokenInvalid
	case res.StatusCode != http.StatusOK || !env.Success:
		c.log.Error("auth server refused request", "path", path, "status", res.StatusCode)
		return nil, ErrTokenResponse
	}
	return env, nil
}
