package tokens

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	Algorithm              = "RS256"
	DefaultIssuer          = "justrally-auth"
	DefaultAudience        = "justrally-app"
	DefaultAccessLifetime  = 15 * time.Minute
	DefaultRefreshLifetime = 7 * 24 * time.Hour

	// UnknownEmail is embedded in access tokens when the upstream identity
	// carries no email address.
	UnknownEmail = "unknown"
)

// ErrUnauthorized is the only error a verifier reports to its caller.
var ErrUnauthorized = errors.New("unauthorized")

var (
	errTokenMalformed       = errors.New("token malformed")
	errTokenBadSignature    = errors.New("token bad signature")
	errTokenExpired         = errors.New("token expired")
	errTokenNotIssued       = errors.New("token not issued yet")
	errTokenInvalidIssuer   = errors.New("token invalid issuer")
	errTokenInvalidAudience = errors.New("token invalid audience")
	errTokenMissingClaim    = errors.New("token missing claim")
	errTokenInvalid         = errors.New("token invalid")
)

// Config carries the process-wide signing material and claim constants.
// It is built once at startup and never mutated.
type Config struct {
	SigningKey      *rsa.PrivateKey
	VerificationKey *rsa.PublicKey
	Issuer          string
	Audience        string
	AccessLifetime  time.Duration
	RefreshLifetime time.Duration

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

func (cfg Config) withDefaults() Config {
	if cfg.VerificationKey == nil && cfg.SigningKey != nil {
		cfg.VerificationKey = &cfg.SigningKey.PublicKey
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}
	if cfg.AccessLifetime == 0 {
		cfg.AccessLifetime = DefaultAccessLifetime
	}
	if cfg.RefreshLifetime == 0 {
		cfg.RefreshLifetime = DefaultRefreshLifetime
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

// validateError keeps the precise reason a token was refused so it can be
// logged, while Error() only ever reports the coarse kind.
type validateError struct {
	context string
	err     error
}

func (e *validateError) Context() string { return e.context }
func (e *validateError) Error() string   { return e.err.Error() }
func (e *validateError) Unwrap() error   { return e.err }

// unauthorizedError is what verifiers hand back. It matches ErrUnauthorized
// and hides the reason behind Reason().
type unauthorizedError struct {
	reason string
}

func (e *unauthorizedError) Error() string        { return ErrUnauthorized.Error() }
func (e *unauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *unauthorizedError) Reason() string       { return e.reason }

func unauthorized(err error) error {
	var verr *validateError
	if errors.As(err, &verr) {
		return &unauthorizedError{reason: verr.Context()}
	}
	return &unauthorizedError{reason: err.Error()}
}

// Reason extracts the internal rejection reason from a verifier error for
// logging. It returns the error text for any other error.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var reasoned interface{ Reason() string }
	if errors.As(err, &reasoned) {
		return reasoned.Reason()
	}
	return err.Error()
}

// Codec signs and verifies RS256 JWTs bound to one issuer and audience.
type Codec struct {
	signingKey      *rsa.PrivateKey
	verificationKey *rsa.PublicKey
	issuer          string
	audience        string
	parser          *jwt.Parser
}

func NewCodec(cfg Config) (*Codec, error) {
	cfg = cfg.withDefaults()
	if cfg.VerificationKey == nil {
		return nil, fmt.Errorf("tokens: verification key is required")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	)
	return &Codec{
		signingKey:      cfg.SigningKey,
		verificationKey: cfg.VerificationKey,
		issuer:          cfg.Issuer,
		audience:        cfg.Audience,
		parser:          parser,
	}, nil
}

func (c *Codec) Issuer() string   { return c.issuer }
func (c *Codec) Audience() string { return c.audience }

// Encode signs claims as-is. Time claims are supplied by the caller.
func (c *Codec) Encode(claims jwt.Claims) (string, error) {
	if c.signingKey == nil {
		return "", fmt.Errorf("tokens: codec has no signing key")
	}
	encoded, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return encoded, nil
}

// Decode verifies tokenStr and fills claims. Any defect is reported as a
// *validateError; no claims should be trusted when it returns an error.
func (c *Codec) Decode(tokenStr string, claims jwt.Claims) error {
	_, err := c.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return c.verificationKey, nil
	})
	if err != nil {
		return &validateError{
			context: fmt.Sprintf("token rejected: %v", err),
			err:     classify(err),
		}
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return errTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return errTokenBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return errTokenExpired
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return errTokenNotIssued
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return errTokenInvalidIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return errTokenInvalidAudience
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return errTokenMissingClaim
	default:
		return errTokenInvalid
	}
}

// Issuer builds signed access and refresh tokens.
type Issuer interface {
	IssueAccessToken(subject string, email string) (*AccessToken, error)
	IssueRefreshToken(subject string) (*RefreshToken, error)
}

// Verifier checks encoded tokens. Every failure satisfies
// errors.Is(err, ErrUnauthorized).
type Verifier interface {
	VerifyAccessToken(encoded string) (*AccessToken, error)
	VerifyRefreshToken(encoded string) (*RefreshToken, error)
}

// InitServer builds a token server from cfg and returns it as both an
// Issuer and a Verifier.
func InitServer(cfg Config) (Issuer, Verifier, error) {
	server, err := NewServer(cfg)
	if err != nil {
		return nil, nil, err
	}
	return server, server, nil
}

// InitVerifier builds a verify-only server from a public key.
func InitVerifier(
	verificationKey *rsa.PublicKey,
	issuer string,
	audience string,
) (Verifier, error) {
	server, err := NewServer(Config{
		VerificationKey: verificationKey,
		Issuer:          issuer,
		Audience:        audience,
	})
	if err != nil {
		return nil, err
	}
	return server, nil
}
