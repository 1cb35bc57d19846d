package identity_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testProject = "justrally-test"

var (
	sharedTestKey     *rsa.PrivateKey
	sharedTestKeyOnce sync.Once

	testEpoch = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
)

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

func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// certificatePEM self-signs a certificate around key, the shape Google
// publishes its token signing keys in.
func certificatePEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken.system.gserviceaccount.com"},
		NotBefore:    testEpoch.Add(-24 * time.Hour),
		NotAfter:     testEpoch.Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func validClaims(now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            "https://securetoken.google.com/" + testProject,
		"aud":            testProject,
		"sub":            "firebase-uid-1",
		"iat":            now.Add(-time.Minute).Unix(),
		"exp":            now.Add(time.Hour).Unix(),
		"auth_time":      now.Add(-time.Minute).Unix(),
		"email":          "player@example.com",
		"email_verified": true,
		"name":           "Rally Player",
		"picture":        "https://example.com/p.png",
		"phone_number":   "+15550100",
	}
}

func signIdentityToken(
	t *testing.T,
	key *rsa.PrivateKey,
	kid string,
	claims jwt.MapClaims,
) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	encoded, err := token.SignedString(key)
	require.NoError(t, err)
	return encoded
}
