package tokens

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIDPrefix   = "refresh"
	tokenIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	tokenIDEntropy  = 12
)

// RefreshClaims is the claims section of a refresh token.
type RefreshClaims struct {
	TokenID string `json:"tokenId"`
	jwt.RegisteredClaims
}

// RefreshToken is a long-lived token used to obtain new access tokens.
// Its TokenID names exactly one issuance.
type RefreshToken struct {
	subject    string
	tokenID    string
	issuedAt   time.Time
	expiration time.Time
	encoded    string
}

func (t *RefreshToken) Subject() string       { return t.subject }
func (t *RefreshToken) TokenID() string       { return t.tokenID }
func (t *RefreshToken) IssuedAt() time.Time   { return t.issuedAt }
func (t *RefreshToken) Expiration() time.Time { return t.expiration }
func (t *RefreshToken) Encoded() string       { return t.encoded }

func (server *Server) IssueRefreshToken(subject string) (*RefreshToken, error) {
	if subject == "" {
		return nil, fmt.Errorf("failed to issue refresh token: empty subject")
	}

	now := server.now()
	tokenID, err := newTokenID(subject, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token id: %w", err)
	}

	issuedAt := now.Truncate(time.Second)
	token := &RefreshToken{
		subject:    subject,
		tokenID:    tokenID,
		issuedAt:   issuedAt,
		expiration: issuedAt.Add(server.refreshLifetime),
	}

	encoded, err := server.codec.Encode(token.intoClaims(server.codec))
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh token: %w", err)
	}
	token.encoded = encoded

	return token, nil
}

func (server *Server) VerifyRefreshToken(encoded string) (*RefreshToken, error) {
	claims := &RefreshClaims{}
	if err := server.codec.Decode(encoded, claims); err != nil {
		return nil, unauthorized(err)
	}
	if claims.Subject == "" || claims.TokenID == "" {
		return nil, &unauthorizedError{reason: "refresh token missing sub or tokenId"}
	}

	token := &RefreshToken{}
	token.fromClaims(claims, encoded)
	return token, nil
}

func (token *RefreshToken) intoClaims(codec *Codec) *RefreshClaims {
	return &RefreshClaims{
		TokenID: token.tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    codec.Issuer(),
			Subject:   token.subject,
			Audience:  jwt.ClaimStrings{codec.Audience()},
			IssuedAt:  jwt.NewNumericDate(token.issuedAt),
			ExpiresAt: jwt.NewNumericDate(token.expiration),
		},
	}
}

func (token *RefreshToken) fromClaims(claims *RefreshClaims, encoded string) {
	token.subject = claims.Subject
	token.tokenID = claims.TokenID
	if claims.IssuedAt != nil {
		token.issuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		token.expiration = claims.ExpiresAt.Time
	}
	token.encoded = encoded
}

// newTokenID builds "refresh_<subject>_<unix millis>_<random base36>".
func newTokenID(subject string, issuedAt time.Time) (string, error) {
	suffix, err := randomBase36(tokenIDEntropy)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%s_%d_%s", tokenIDPrefix, subject, issuedAt.UnixMilli(), suffix), nil
}

func randomBase36(n int) (string, error) {
	// largest multiple of 36 that fits in a byte; bytes above it are
	// rejected so every character is equally likely
	const limit = 252

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, tokenIDAlphabet[int(b)%len(tokenIDAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
