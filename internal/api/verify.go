package api

import (
	"net/http"
)

// Verify resolves the bearer token to its user.
func (a *API) Verify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := a.service.Verify(r.Context(), bearerToken(r))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		a.returnJson(w, http.StatusOK, newUserResponse(user))
	}
}
