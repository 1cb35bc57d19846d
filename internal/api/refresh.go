package api

import (
	"net/http"
)

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type RefreshResponse struct {
	Tokens TokensResponse `json:"tokens"`
}

func (a *API) Refresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := RefreshRequest{}
		if ok := a.decodeRequest(&req, w, r); !ok {
			return
		}

		result, err := a.service.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		a.returnJson(w, http.StatusOK, RefreshResponse{
			Tokens: newTokensResponse(result.Tokens),
		})
	}
}
