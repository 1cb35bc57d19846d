package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the claims section of an access token.
type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AccessToken is a short-lived token naming a user and the email address
// the identity provider reported for them.
type AccessToken struct {
	subject    string
	email      string
	issuedAt   time.Time
	expiration time.Time
	encoded    string
}

func (t *AccessToken) Subject() string       { return t.subject }
func (t *AccessToken) Email() string         { return t.email }
func (t *AccessToken) IssuedAt() time.Time   { return t.issuedAt }
func (t *AccessToken) Expiration() time.Time { return t.expiration }
func (t *AccessToken) Encoded() string       { return t.encoded }

// ExpiresIn is the token lifetime in whole seconds.
func (t *AccessToken) ExpiresIn() int {
	return int(t.expiration.Sub(t.issuedAt) / time.Second)
}

func (server *Server) IssueAccessToken(
	subject string,
	email string,
) (*AccessToken, error) {
	if subject == "" {
		return nil, fmt.Errorf("failed to issue access token: empty subject")
	}
	if email == "" {
		email = UnknownEmail
	}

	now := server.now().Truncate(time.Second)
	token := &AccessToken{
		subject:    subject,
		email:      email,
		issuedAt:   now,
		expiration: now.Add(server.accessLifetime),
	}

	encoded, err := server.codec.Encode(token.intoClaims(server.codec))
	if err != nil {
		return nil, fmt.Errorf("failed to encode access token: %w", err)
	}
	token.encoded = encoded

	return token, nil
}

func (server *Server) VerifyAccessToken(encoded string) (*AccessToken, error) {
	claims := &AccessClaims{}
	if err := server.codec.Decode(encoded, claims); err != nil {
		return nil, unauthorized(err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, &unauthorizedError{reason: "access token missing sub or email"}
	}

	token := &AccessToken{}
	token.fromClaims(claims, encoded)
	return token, nil
}

func (token *AccessToken) intoClaims(codec *Codec) *AccessClaims {
	return &AccessClaims{
		Email: token.email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    codec.Issuer(),
			Subject:   token.subject,
			Audience:  jwt.ClaimStrings{codec.Audience()},
			IssuedAt:  jwt.NewNumericDate(token.issuedAt),
			ExpiresAt: jwt.NewNumericDate(token.expiration),
		},
	}
}

func (token *AccessToken) fromClaims(claims *AccessClaims, encoded string) {
	token.subject = claims.Subject
	token.email = claims.Email
	if claims.IssuedAt != nil {
		token.issuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		token.expiration = claims.ExpiresAt.Time
	}
	token.encoded = encoded
}
