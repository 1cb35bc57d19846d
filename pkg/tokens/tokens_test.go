package tokens_test

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/rallyauth/pkg/tokens"
)

var (
	sharedTestKey     *rsa.PrivateKey
	sharedTestKeyOnce sync.Once

	testEpoch = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
)

// getSharedTestKey returns a shared RSA key for tests that don't need isolation.
// RSA generation is slow enough that each test making its own is noticeable.
func getSharedTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	sharedTestKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic("failed to generate shared test key: " + err.Error())
		}
		sharedTestKey = key
	})
	return sharedTestKey
}

// generateTestKey creates a new unique key for tests that require key isolation.
func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newTestServer(t *testing.T, key *rsa.PrivateKey, now time.Time) *tokens.Server {
	t.Helper()
	server, err := tokens.NewServer(tokens.Config{
		SigningKey: key,
		Now:        fixedClock(now),
	})
	require.NoError(t, err)
	return server
}

func TestInitServer(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)

	// server initialization returns issuer and verifier
	issuer, verifier, err := tokens.InitServer(tokens.Config{SigningKey: key})
	require.NoError(t, err)
	assert.NotNil(t, issuer)
	assert.NotNil(t, verifier)
}

func TestInitServer_NoKey(t *testing.T) {
	t.Parallel()

	// a server needs at least a verification key
	_, _, err := tokens.InitServer(tokens.Config{})
	assert.Error(t, err)
}

func TestInitVerifier_VerifiesServerTokens(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	issuer, _, err := tokens.InitServer(tokens.Config{SigningKey: key})
	require.NoError(t, err)

	// a public-key-only verifier accepts tokens from the server
	verifier, err := tokens.InitVerifier(&key.PublicKey, tokens.DefaultIssuer, tokens.DefaultAudience)
	require.NoError(t, err)

	access, err := issuer.IssueAccessToken("user-1", "a@b.com")
	require.NoError(t, err)
	decoded, err := verifier.VerifyAccessToken(access.Encoded())
	require.NoError(t, err)
	assert.Equal(t, "user-1", decoded.Subject())
}

func TestInitVerifier_CannotIssue(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)

	// a verify-only server refuses to sign
	server, err := tokens.NewServer(tokens.Config{VerificationKey: &key.PublicKey})
	require.NoError(t, err)
	_, err = server.IssueAccessToken("user-1", "a@b.com")
	assert.Error(t, err)
}

func TestCodec_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	server := newTestServer(t, key, testEpoch)

	claims := &tokens.AccessClaims{
		Email: "a@b.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokens.DefaultIssuer,
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{tokens.DefaultAudience},
			IssuedAt:  jwt.NewNumericDate(testEpoch),
			ExpiresAt: jwt.NewNumericDate(testEpoch.Add(time.Hour)),
		},
	}

	// HS256 is refused
	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = server.VerifyAccessToken(hs)
	assert.ErrorIs(t, err, tokens.ErrUnauthorized)

	// alg none is refused
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = server.VerifyAccessToken(none)
	assert.ErrorIs(t, err, tokens.ErrUnauthorized)
}

func TestCodec_RequiresExpiration(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	server := newTestServer(t, key, testEpoch)

	// a correctly signed token without exp is refused
	encoded, err := server.Codec().Encode(&tokens.AccessClaims{
		Email: "a@b.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   tokens.DefaultIssuer,
			Subject:  "user-1",
			Audience: jwt.ClaimStrings{tokens.DefaultAudience},
			IssuedAt: jwt.NewNumericDate(testEpoch),
		},
	})
	require.NoError(t, err)
	_, err = server.VerifyAccessToken(encoded)
	assert.ErrorIs(t, err, tokens.ErrUnauthorized)
}

func TestCodec_MalformedInput(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	server := newTestServer(t, key, time.Now())

	inputs := []string{
		"",
		"not-a-jwt",
		"a.b.c",
		"eyJhbGciOiJSUzI1NiJ9.e30",
	}
	for _, input := range inputs {
		// every malformed input collapses to unauthorized
		_, err := server.VerifyAccessToken(input)
		assert.ErrorIs(t, err, tokens.ErrUnauthorized, "input %q", input)
		assert.Equal(t, "unauthorized", err.Error())
	}
}

func TestReason(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	server := newTestServer(t, key, time.Now())

	// the collapsed error keeps the internal cause for logs
	_, err := server.VerifyAccessToken("not-a-jwt")
	require.Error(t, err)
	assert.NotEmpty(t, tokens.Reason(err))
	assert.NotEqual(t, "unauthorized", tokens.Reason(err))

	// non-token errors report their own text
	assert.Equal(t, "boom", tokens.Reason(errors.New("boom")))
	assert.Equal(t, "", tokens.Reason(nil))
}
