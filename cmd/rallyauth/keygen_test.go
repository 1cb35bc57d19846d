package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/rallyauth/pkg/tokens"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd := newRootCmd()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestKeygen(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "keys")

	out, err := runCmd(t, "keygen", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "private.pem")

	// the pair loads and matches
	priv, err := tokens.LoadPrivateKeyFile(filepath.Join(dir, "private.pem"))
	require.NoError(t, err)
	pub, err := tokens.LoadPublicKeyFile(filepath.Join(dir, "public.pem"))
	require.NoError(t, err)
	assert.True(t, priv.PublicKey.Equal(pub))

	// private key is owner-only
	info, err := os.Stat(filepath.Join(dir, "private.pem"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestKeygen_RefusesOverwrite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	// setup existing keys
	_, err := runCmd(t, "keygen", "--out", dir)
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(dir, "private.pem"))
	require.NoError(t, err)

	// second run fails and leaves the keys alone
	_, err = runCmd(t, "keygen", "--out", dir)
	assert.ErrorContains(t, err, "already exists")
	after, err := os.ReadFile(filepath.Join(dir, "private.pem"))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// unless forced
	_, err = runCmd(t, "keygen", "--out", dir, "--force")
	require.NoError(t, err)
	after, err = os.ReadFile(filepath.Join(dir, "private.pem"))
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestKeygen_SmallKey(t *testing.T) {
	t.Parallel()

	// weak keys are refused
	_, err := runCmd(t, "keygen", "--out", t.TempDir(), "--bits", "1024")
	assert.Error(t, err)
}
