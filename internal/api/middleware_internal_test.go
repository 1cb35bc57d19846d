package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"git.sr.ht/~jakintosh/rallyauth/internal/service"
)

func TestBearerToken(t *testing.T) {
	t.Parallel()

	for header, want := range map[string]string{
		"":               "",
		"Bearer abc.def": "abc.def",
		"Bearer  abc ":   "abc",
		"bearer abc":     "",
		"Basic abc":      "",
		"abc":            "",
	} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, bearerToken(r), header)
	}
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()
	a := &API{timeout: 50 * time.Millisecond}

	// handlers see the request deadline
	var deadline time.Time
	var ok bool
	handler := a.withTimeout(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	start := time.Now()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, ok)
	assert.WithinDuration(t, start.Add(50*time.Millisecond), deadline, 50*time.Millisecond)
}

func TestCurrentUser(t *testing.T) {
	t.Parallel()

	// absent outside authenticate
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, currentUser(r))

	// present once set
	user := &service.User{ID: "u1"}
	r = r.WithContext(context.WithValue(r.Context(), userKey{}, user))
	assert.Same(t, user, currentUser(r))
}
