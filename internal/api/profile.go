package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"git.sr.ht/~jakintosh/rallyauth/internal/service"
)

type ProfileResponse struct {
	ID          string    `json:"id"`
	PhoneNumber *string   `json:"phoneNumber"`
	Username    *string   `json:"username"`
	Birthday    *string   `json:"birthday"`
	Gender      *string   `json:"gender"`
	TennisLevel *string   `json:"tennisLevel"`
	Deleted     bool      `json:"deleted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type GetProfileResponse struct {
	User      ProfileResponse `json:"user"`
	Completed bool            `json:"completed"`
}

type UpdateProfileRequest struct {
	Username    string `json:"username" validate:"required"`
	Birthday    string `json:"birthday" validate:"required"`
	Gender      string `json:"gender" validate:"required"`
	TennisLevel string `json:"tennisLevel" validate:"required"`
}

type UpdatePhotoRequest struct {
	PhotoURL string `json:"photoURL" validate:"required,url"`
}

type UsernameAvailabilityResponse struct {
	Available bool `json:"available"`
}

func newProfileResponse(user *service.User) ProfileResponse {
	return ProfileResponse{
		ID:          user.ID,
		PhoneNumber: user.PhoneNumber,
		Username:    user.Username,
		Birthday:    formatDate(user.Birthday),
		Gender:      genderString(user.Gender),
		TennisLevel: user.TennisLevel,
		Deleted:     user.Deleted,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func (a *API) GetMyProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.getProfile(w, r, currentUser(r).ID)
	}
}

func (a *API) GetUserProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.getProfile(w, r, mux.Vars(r)["userId"])
	}
}

func (a *API) getProfile(w http.ResponseWriter, r *http.Request, userID string) {
	profile, err := a.service.GetProfile(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.returnJson(w, http.StatusOK, GetProfileResponse{
		User:      newProfileResponse(profile.User),
		Completed: profile.Completed,
	})
}

func (a *API) UpdateMyProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateProfileRequest
		if ok := a.decodeRequest(&req, w, r); !ok {
			return
		}

		birthday, err := service.ParseBirthday(req.Birthday)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		user, err := a.service.UpdateProfile(r.Context(), currentUser(r).ID, service.ProfileUpdate{
			Username:    req.Username,
			Birthday:    birthday,
			Gender:      service.Gender(req.Gender),
			TennisLevel: req.TennisLevel,
		})
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		a.returnJson(w, http.StatusOK, newProfileResponse(user))
	}
}

func (a *API) UpdateMyPhoto() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdatePhotoRequest
		if ok := a.decodeRequest(&req, w, r); !ok {
			return
		}

		user, err := a.service.UpdatePhoto(r.Context(), currentUser(r).ID, req.PhotoURL)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		a.returnJson(w, http.StatusOK, newProfileResponse(user))
	}
}

func (a *API) CheckUsername() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := a.service.CheckUsernameAvailability(r.Context(), r.URL.Query().Get("username"))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		a.returnJson(w, http.StatusOK, UsernameAvailabilityResponse{Available: result.Available})
	}
}
