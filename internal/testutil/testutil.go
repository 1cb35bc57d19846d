// Package testutil provides test environment setup and utilities for internal package tests.
package testutil

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"

	"git.sr.ht/~jakintosh/rallyauth/internal/api"
	"git.sr.ht/~jakintosh/rallyauth/internal/database"
	"git.sr.ht/~jakintosh/rallyauth/internal/identity"
	"git.sr.ht/~jakintosh/rallyauth/internal/logging"
	"git.sr.ht/~jakintosh/rallyauth/internal/metrics"
	"git.sr.ht/~jakintosh/rallyauth/internal/service"
	"git.sr.ht/~jakintosh/rallyauth/pkg/tokens"
)

const (
	FirebaseProject = "rallyauth-test"
	FirebaseKeyID   = "test-kid"
)

var (
	sharedSigningKey     *rsa.PrivateKey
	sharedSigningKeyOnce sync.Once

	sharedFirebaseKey     *rsa.PrivateKey
	sharedFirebaseKeyOnce sync.Once
)

// getSharedSigningKey returns a cached RSA key for session tokens.
// This avoids the overhead of generating a new key for each test.
func getSharedSigningKey() *rsa.PrivateKey {
	sharedSigningKeyOnce.Do(func() {
		sharedSigningKey = mustGenerateKey()
	})
	return sharedSigningKey
}

// getSharedFirebaseKey returns a cached RSA key standing in for Google's
// identity token signing key.
func getSharedFirebaseKey() *rsa.PrivateKey {
	sharedFirebaseKeyOnce.Do(func() {
		sharedFirebaseKey = mustGenerateKey()
	})
	return sharedFirebaseKey
}

// SigningPublicKey is the public half of the session token key.
func SigningPublicKey() *rsa.PublicKey {
	return &getSharedSigningKey().PublicKey
}

func mustGenerateKey() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic("failed to generate shared key: " + err.Error())
	}
	return key
}

// TestEnv provides all dependencies needed for testing
type TestEnv struct {
	DB            *database.SQLiteStore
	Service       *service.Service
	Router        http.Handler
	API           *api.API
	Registry      *prometheus.Registry
	Metrics       *metrics.Collector
	TokenIssuer   tokens.Issuer
	TokenVerifier tokens.Verifier
}

// SetupTestEnv creates an isolated test environment with in-memory SQLite
func SetupTestEnv(
	t *testing.T,
) *TestEnv {
	t.Helper()

	db, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	issuer, verifier, err := tokens.InitServer(tokens.Config{
		SigningKey: getSharedSigningKey(),
	})
	if err != nil {
		t.Fatalf("failed to init token server: %v", err)
	}

	identities, err := identity.NewFirebaseVerifier(identity.FirebaseConfig{
		ProjectID: FirebaseProject,
		Keys: identity.StaticKeySource{
			FirebaseKeyID: &getSharedFirebaseKey().PublicKey,
		},
		Logger: logging.Discard(),
	})
	if err != nil {
		t.Fatalf("failed to init identity verifier: %v", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	svc := service.New(db, identities, issuer, verifier, collector, logging.Discard())

	return &TestEnv{
		DB:            db,
		Service:       svc,
		Registry:      registry,
		Metrics:       collector,
		TokenIssuer:   issuer,
		TokenVerifier: verifier,
	}
}

// SetupTestEnvWithRouter creates TestEnv and configures the API router
func SetupTestEnvWithRouter(
	t *testing.T,
	opts ...func(*api.Options),
) *TestEnv {
	t.Helper()
	env := SetupTestEnv(t)

	options := api.Options{
		Environment: "test",
		Metrics:     env.Metrics,
		Gatherer:    env.Registry,
		Logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	env.API = api.New(env.Service, options)
	env.Router = env.API.Router()
	t.Cleanup(env.API.Close)
	return env
}

// IdentityToken signs a Firebase-shaped ID token for uid that the test
// environment accepts.
func IdentityToken(
	t *testing.T,
	uid string,
	email string,
) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":            "https://securetoken.google.com/" + FirebaseProject,
		"aud":            FirebaseProject,
		"sub":            uid,
		"iat":            now.Add(-time.Minute).Unix(),
		"exp":            now.Add(time.Hour).Unix(),
		"auth_time":      now.Add(-time.Minute).Unix(),
		"email_verified": email != "",
	}
	if email != "" {
		claims["email"] = email
	}
	return SignIdentityToken(t, claims)
}

// SignIdentityToken signs arbitrary claims with the test identity key.
func SignIdentityToken(
	t *testing.T,
	claims jwt.MapClaims,
) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = FirebaseKeyID
	encoded, err := token.SignedString(getSharedFirebaseKey())
	if err != nil {
		t.Fatalf("failed to sign identity token: %v", err)
	}
	return encoded
}

// LoginTestUser logs uid in through the service, creating the user.
func (env *TestEnv) LoginTestUser(
	t *testing.T,
	uid string,
	email string,
) *service.LoginResult {
	t.Helper()
	result, err := env.Service.Login(context.Background(), IdentityToken(t, uid, email))
	if err != nil {
		t.Fatalf("failed to log in test user: %v", err)
	}
	return result
}

// CompleteTestProfile fills in the onboarding fields for userID.
func (env *TestEnv) CompleteTestProfile(
	t *testing.T,
	userID string,
	username string,
) *service.User {
	t.Helper()
	user, err := env.Service.UpdateProfile(context.Background(), userID, service.ProfileUpdate{
		Username:    username,
		Birthday:    time.Date(1994, time.July, 2, 0, 0, 0, 0, time.UTC),
		Gender:      service.GenderFemale,
		TennisLevel: "3.5",
	})
	if err != nil {
		t.Fatalf("failed to complete test profile: %v", err)
	}
	return user
}

// IssueTestAccessToken creates an access token for testing
func (env *TestEnv) IssueTestAccessToken(
	t *testing.T,
	subject string,
) *tokens.AccessToken {
	t.Helper()
	token, err := env.TokenIssuer.IssueAccessToken(subject, subject+"@example.com")
	if err != nil {
		t.Fatalf("failed to issue test access token: %v", err)
	}
	return token
}

// IssueTestRefreshToken creates a refresh token for testing
func (env *TestEnv) IssueTestRefreshToken(
	t *testing.T,
	subject string,
) *tokens.RefreshToken {
	t.Helper()
	token, err := env.TokenIssuer.IssueRefreshToken(subject)
	if err != nil {
		t.Fatalf("failed to issue test refresh token: %v", err)
	}
	return token
}
