package api

import (
	"net/http"
	"time"

	"git.sr.ht/~jakintosh/rallyauth/internal/service"
)

type LoginRequest struct {
	FirebaseToken string `json:"firebaseToken" validate:"required"`
}

type LoginResponse struct {
	User      UserResponse   `json:"user"`
	Tokens    TokensResponse `json:"tokens"`
	Completed bool           `json:"completed"`
}

type TokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// UserResponse is the user record as the client sees it. Unset optional
// fields are null.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       *string   `json:"email"`
	DisplayName *string   `json:"displayName"`
	PhotoURL    *string   `json:"photoURL"`
	PhoneNumber *string   `json:"phoneNumber"`
	Username    *string   `json:"username"`
	Birthday    *string   `json:"birthday"`
	Gender      *string   `json:"gender"`
	TennisLevel *string   `json:"tennisLevel"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (a *API) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if ok := a.decodeRequest(&req, w, r); !ok {
			return
		}

		result, err := a.service.Login(r.Context(), req.FirebaseToken)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		a.returnJson(w, http.StatusOK, LoginResponse{
			User:      newUserResponse(result.User),
			Tokens:    newTokensResponse(result.Tokens),
			Completed: result.Completed,
		})
	}
}

func newTokensResponse(pair service.TokenPair) TokensResponse {
	return TokensResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}
}

func newUserResponse(user *service.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		PhoneNumber: user.PhoneNumber,
		Username:    user.Username,
		Birthday:    formatDate(user.Birthday),
		Gender:      genderString(user.Gender),
		TennisLevel: user.TennisLevel,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(service.DateLayout)
	return &s
}

func genderString(g *service.Gender) *string {
	if g == nil {
		return nil
	}
	s := string(*g)
	return &s
}
