package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	firebaseIssuerPrefix = "https://securetoken.google.com/"
	maxSubjectLength     = 128
)

type firebaseClaims struct {
	Email         string           `json:"email"`
	EmailVerified bool             `json:"email_verified"`
	Name          string           `json:"name"`
	Picture       string           `json:"picture"`
	PhoneNumber   string           `json:"phone_number"`
	AuthTime      *jwt.NumericDate `json:"auth_time"`
	jwt.RegisteredClaims
}

type FirebaseConfig struct {
	ProjectID string
	Keys      KeySource
	Logger    *slog.Logger

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// FirebaseVerifier checks Firebase ID tokens for one project.
type FirebaseVerifier struct {
	projectID string
	keys      KeySource
	parser    *jwt.Parser
	now       func() time.Time
	log       *slog.Logger
}

var _ Verifier = (*FirebaseVerifier)(nil)

func NewFirebaseVerifier(cfg FirebaseConfig) (*FirebaseVerifier, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("identity: firebase project id is required")
	}
	if cfg.Keys == nil {
		return nil, fmt.Errorf("identity: key source is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(firebaseIssuerPrefix+cfg.ProjectID),
		jwt.WithAudience(cfg.ProjectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	)

	return &FirebaseVerifier{
		projectID: cfg.ProjectID,
		keys:      cfg.Keys,
		parser:    parser,
		now:       cfg.Now,
		log:       cfg.Logger.With("component", "firebase"),
	}, nil
}

func (v *FirebaseVerifier) VerifyIdentityToken(
	ctx context.Context,
	token string,
) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &firebaseClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid", ErrUnknownKey)
		}
		key, err := v.keys.PublicKey(ctx, kid)
		if err != nil {
			v.log.Debug("signing key lookup failed", "kid", kid, "error", err)
			return nil, err
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Subject == "" || len(claims.Subject) > maxSubjectLength {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	if claims.AuthTime != nil && claims.AuthTime.After(v.now()) {
		return nil, fmt.Errorf("%w: auth_time in the future", ErrInvalidToken)
	}

	return &Identity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		DisplayName:   claims.Name,
		PhotoURL:      claims.Picture,
		PhoneNumber:   claims.PhoneNumber,
	}, nil
}
