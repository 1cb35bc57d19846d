package tokens_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/rallyauth/pkg/tokens"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	server := newTestServer(t, key, testEpoch)

	// issue token
	original, err := server.IssueAccessToken("user-123", "player@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, original.Encoded())

	// decoded token matches original
	decoded, err := server.VerifyAccessToken(original.Encoded())
	require.NoError(t, err)
	assert.Equal(t, "user-123", decoded.Subject())
	assert.Equal(t, "player@example.com", decoded.Email())
	assert.True(t, decoded.IssuedAt().Equal(testEpoch))
	assert.True(t, decoded.Expiration().Equal(testEpoch.Add(15*time.Minute)))
}

func TestAccessToken_Lifetime(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	server := newTestServer(t, key, testEpoch)

	// exp - iat is exactly fifteen minutes
	token, err := server.IssueAccessToken("user-123", "player@example.com")
	require.NoError(t, err)
	assert.Equal(t, 900, token.ExpiresIn())

	decoded, err := server.VerifyAccessToken(token.Encoded())
	require.NoError(t, err)
	assert.Equal(t, 900, decoded.ExpiresIn())
}

func TestAccessToken_EmptyEmail(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	server := newTestServer(t, key, testEpoch)

	// missing email is replaced by the unknown sentinel
	token, err := server.IssueAccessToken("user-123", "")
	require.NoError(t, err)
	decoded, err := server.VerifyAccessToken(token.Encoded())
	require.NoError(t, err)
	assert.Equal(t, tokens.UnknownEmail, decoded.Email())
}

func TestAccessToken_EmptySubject(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	server := newTestServer(t, key, testEpoch)

	// a token must name a subject
	_, err := server.IssueAccessToken("", "player@example.com")
	assert.Error(t, err)
}

func TestAccessToken_Expired(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	issuer := newTestServer(t, key, testEpoch)

	token, err := issuer.IssueAccessToken("user-123", "player@example.com")
	require.NoError(t, err)

	// still valid one second before expiry
	before := newTestServer(t, key, testEpoch.Add(15*time.Minute-time.Second))
	_, err = before.VerifyAccessToken(token.Encoded())
	assert.NoError(t, err)

	// refused once the lifetime has passed
	after := newTestServer(t, key, testEpoch.Add(16*time.Minute))
	_, err = after.VerifyAccessToken(token.Encoded())
	assert.ErrorIs(t, err, tokens.ErrUnauthorized)
}

func TestAccessToken_IssuedInFuture(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	issuer := newTestServer(t, key, testEpoch.Add(time.Hour))

	// a token whose iat is after the verifier's clock is refused
	token, err := issuer.IssueAccessToken("user-123", "player@example.com")
	require.NoError(t, err)
	verifier := newTestServer(t, key, testEpoch)
	_, err = verifier.VerifyAccessToken(token.Encoded())
	assert.ErrorIs(t, err, tokens.ErrUnauthorized)
}

func TestAccessToken_WrongKey(t *testing.T) {
	t.Parallel()
	issuer := newTestServer(t, generateTestKey(t), testEpoch)
	verifier := newTestServer(t, getSharedTestKey(t), testEpoch)

	// token signed by another key is refused
	token, err := issuer.IssueAccessToken("user-123", "player@example.com")
	require.NoError(t, err)
	_, err = verifier.VerifyAccessToken(token.Encoded())
	assert.ErrorIs(t, err, tokens.ErrUnauthorized)
}

func TestAccessToken_WrongIssuerOrAudience(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	verifier := newTestServer(t, key, testEpoch)

	cases := []tokens.Config{
		{SigningKey: key, Issuer: "someone-else", Now: fixedClock(testEpoch)},
		{SigningKey: key, Audience: "other-app", Now: fixedClock(testEpoch)},
	}
	for _, cfg := range cases {
		issuer, err := tokens.NewServer(cfg)
		require.NoError(t, err)

		// same key but different iss or aud is refused
		token, err := issuer.IssueAccessToken("user-123", "player@example.com")
		require.NoError(t, err)
		_, err = verifier.VerifyAccessToken(token.Encoded())
		assert.ErrorIs(t, err, tokens.ErrUnauthorized)
	}
}

func TestAccessToken_TamperedPayload(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	server := newTestServer(t, key, testEpoch)

	token, err := server.IssueAccessToken("user-123", "player@example.com")
	require.NoError(t, err)

	// flipping one payload character breaks the signature
	encoded := []byte(token.Encoded())
	for i, c := range encoded {
		if c == '.' {
			if encoded[i+1] == 'A' {
				encoded[i+1] = 'B'
			} else {
				encoded[i+1] = 'A'
			}
			break
		}
	}
	_, err = server.VerifyAccessToken(string(encoded))
	assert.ErrorIs(t, err, tokens.ErrUnauthorized)
}

func TestAccessToken_RefreshTokenNotAccepted(t *testing.T) {
	t.Parallel()
	key := getSharedTestKey(t)
	server := newTestServer(t, key, testEpoch)

	// a refresh token has no email so it is not an access token
	refresh, err := server.IssueRefreshToken("user-123")
	require.NoError(t, err)
	_, err = server.VerifyAccessToken(refresh.Encoded())
	assert.ErrorIs(t, err, tokens.ErrUnauthorized)
}
