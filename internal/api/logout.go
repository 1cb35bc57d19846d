package api

import (
	"encoding/json"
	"net/http"
)

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutResponse struct {
	Message string `json:"message"`
}

// Logout always answers 200, even for a missing or unreadable body.
func (a *API) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LogoutRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			a.logApiErr(r, "bad json request")
		}

		a.service.Logout(r.Context(), req.RefreshToken)
		a.returnJson(w, http.StatusOK, LogoutResponse{Message: "Logout successful"})
	}
}
