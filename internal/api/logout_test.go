package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"git.sr.ht/~jakintosh/rallyauth/internal/api"
	"git.sr.ht/~jakintosh/rallyauth/internal/testutil"
)

func TestLogout_Success(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	login := env.LoginTestUser(t, "fb-alice", "alice@example.com")

	// logout confirms
	body := `{
		"refreshToken": "` + login.Tokens.RefreshToken + `"
	}`
	result := testutil.PostJSON(env.Router, "/api/v1/auth/logout", body, nil)
	testutil.ExpectStatus(t, http.StatusOK, result)

	var response api.LogoutResponse
	testutil.ExpectData(t, result, &response)
	assert.Equal(t, "Logout successful", response.Message)
}

func TestLogout_AnyInput(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// logout never fails, whatever it is given
	for _, body := range []string{
		`{"refreshToken": "invalid-token"}`,
		`{}`,
		`not json`,
		``,
	} {
		result := testutil.PostJSON(env.Router, "/api/v1/auth/logout", body, nil)
		testutil.ExpectStatus(t, http.StatusOK, result)
	}
}
