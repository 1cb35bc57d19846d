package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"git.sr.ht/~jakintosh/rallyauth/internal/metrics"
)

func (a *API) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(a.observe)

	if a.gatherer != nil {
		r.Handle("/metrics", metrics.Handler(a.gatherer)).Methods(http.MethodGet)
	}

	api := r.PathPrefix(a.prefix).Subrouter()
	api.Use(a.limiter.Middleware(a.returnError), a.withTimeout)
	api.HandleFunc("/health", a.Health()).Methods(http.MethodGet)

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", a.Login()).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", a.Refresh()).Methods(http.MethodPost)
	auth.HandleFunc("/logout", a.Logout()).Methods(http.MethodPost)
	auth.HandleFunc("/verify", a.Verify()).Methods(http.MethodGet)

	// "me" routes are registered before "{userId}" so they win the match
	profile := api.PathPrefix("/profile").Subrouter()
	profile.Handle("/me", a.authenticate(a.GetMyProfile())).Methods(http.MethodGet)
	profile.Handle("/me", a.authenticate(a.UpdateMyProfile())).Methods(http.MethodPut)
	profile.Handle("/me/photo", a.authenticate(a.UpdateMyPhoto())).Methods(http.MethodPut)
	profile.HandleFunc("/username/availability", a.CheckUsername()).Methods(http.MethodGet)
	profile.HandleFunc("/{userId}", a.GetUserProfile()).Methods(http.MethodGet)

	// mux skips Use middleware when nothing matched, so these are observed
	// directly
	r.NotFoundHandler = a.observe(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		a.returnError(w, http.StatusNotFound, errNotFound)
	}))
	r.MethodNotAllowedHandler = a.observe(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		a.returnError(w, http.StatusMethodNotAllowed, APIError{
			Code:    "METHOD_NOT_ALLOWED",
			Message: "Method not allowed",
		})
	}))
	return r
}
