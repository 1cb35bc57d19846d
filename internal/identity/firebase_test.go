package identity_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/rallyauth/internal/identity"
)

func newTestVerifier(t *testing.T) *identity.FirebaseVerifier {
	t.Helper()
	key := getSharedTestKey(t)
	verifier, err := identity.NewFirebaseVerifier(identity.FirebaseConfig{
		ProjectID: testProject,
		Keys:      identity.StaticKeySource{"kid-1": &key.PublicKey},
		Now:       func() time.Time { return testEpoch },
	})
	require.NoError(t, err)
	return verifier
}

func TestNewFirebaseVerifier_RequiresConfig(t *testing.T) {
	t.Parallel()

	// project id is required
	_, err := identity.NewFirebaseVerifier(identity.FirebaseConfig{Keys: identity.StaticKeySource{}})
	assert.Error(t, err)

	// key source is required
	_, err = identity.NewFirebaseVerifier(identity.FirebaseConfig{ProjectID: testProject})
	assert.Error(t, err)
}

func TestFirebaseVerifier_Valid(t *testing.T) {
	t.Parallel()
	verifier := newTestVerifier(t)
	token := signIdentityToken(t, getSharedTestKey(t), "kid-1", validClaims(testEpoch))

	// every profile claim is carried through
	id, err := verifier.VerifyIdentityToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", id.Subject)
	assert.Equal(t, "player@example.com", id.Email)
	assert.True(t, id.EmailVerified)
	assert.Equal(t, "Rally Player", id.DisplayName)
	assert.Equal(t, "https://example.com/p.png", id.PhotoURL)
	assert.Equal(t, "+15550100", id.PhoneNumber)
}

func TestFirebaseVerifier_MinimalClaims(t *testing.T) {
	t.Parallel()
	verifier := newTestVerifier(t)
	claims := validClaims(testEpoch)
	delete(claims, "email")
	delete(claims, "name")
	delete(claims, "picture")
	delete(claims, "phone_number")
	delete(claims, "email_verified")
	delete(claims, "auth_time")

	// optional claims may be absent
	id, err := verifier.VerifyIdentityToken(context.Background(), signIdentityToken(t, getSharedTestKey(t), "kid-1", claims))
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", id.Subject)
	assert.Empty(t, id.Email)
}

func TestFirebaseVerifier_Rejects(t *testing.T) {
	t.Parallel()
	verifier := newTestVerifier(t)
	key := getSharedTestKey(t)

	cases := []struct {
		name  string
		token func() string
	}{
		{"empty", func() string { return "" }},
		{"garbage", func() string { return "not.a.token" }},
		{"unknown kid", func() string {
			return signIdentityToken(t, key, "kid-2", validClaims(testEpoch))
		}},
		{"missing kid", func() string {
			return signIdentityToken(t, key, "", validClaims(testEpoch))
		}},
		{"other signer", func() string {
			return signIdentityToken(t, generateTestKey(t), "kid-1", validClaims(testEpoch))
		}},
		{"wrong project", func() string {
			c := validClaims(testEpoch)
			c["aud"] = "someone-else"
			return signIdentityToken(t, key, "kid-1", c)
		}},
		{"wrong issuer", func() string {
			c := validClaims(testEpoch)
			c["iss"] = "https://securetoken.google.com/someone-else"
			return signIdentityToken(t, key, "kid-1", c)
		}},
		{"expired", func() string {
			c := validClaims(testEpoch)
			c["exp"] = testEpoch.Add(-time.Second).Unix()
			return signIdentityToken(t, key, "kid-1", c)
		}},
		{"missing exp", func() string {
			c := validClaims(testEpoch)
			delete(c, "exp")
			return signIdentityToken(t, key, "kid-1", c)
		}},
		{"issued in future", func() string {
			c := validClaims(testEpoch)
			c["iat"] = testEpoch.Add(time.Hour).Unix()
			return signIdentityToken(t, key, "kid-1", c)
		}},
		{"auth in future", func() string {
			c := validClaims(testEpoch)
			c["auth_time"] = testEpoch.Add(time.Hour).Unix()
			return signIdentityToken(t, key, "kid-1", c)
		}},
		{"empty subject", func() string {
			c := validClaims(testEpoch)
			c["sub"] = ""
			return signIdentityToken(t, key, "kid-1", c)
		}},
		{"long subject", func() string {
			c := validClaims(testEpoch)
			c["sub"] = strings.Repeat("x", 129)
			return signIdentityToken(t, key, "kid-1", c)
		}},
		{"hs256", func() string {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims(testEpoch))
			token.Header["kid"] = "kid-1"
			s, err := token.SignedString([]byte("secret"))
			require.NoError(t, err)
			return s
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := verifier.VerifyIdentityToken(context.Background(), tc.token())
			assert.ErrorIs(t, err, identity.ErrInvalidToken)
		})
	}
}

func TestFirebaseVerifier_LogsKeyMiss(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	var logs bytes.Buffer
	verifier, err := identity.NewFirebaseVerifier(identity.FirebaseConfig{
		ProjectID: testProject,
		Keys:      identity.StaticKeySource{"kid-1": &key.PublicKey},
		Logger:    slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Now:       func() time.Time { return testEpoch },
	})
	require.NoError(t, err)

	// an unknown kid is rejected and logged with its id
	_, err = verifier.VerifyIdentityToken(context.Background(), signIdentityToken(t, key, "kid-2", validClaims(testEpoch)))
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
	assert.Contains(t, logs.String(), `"kid":"kid-2"`)
	assert.Contains(t, logs.String(), "signing key lookup failed")
}
