package api

import (
	"net/http"
	"time"
)

type HealthResponse struct {
	Status      string  `json:"status"`
	Timestamp   string  `json:"timestamp"`
	Uptime      float64 `json:"uptime"`
	Environment string  `json:"environment"`
}

func (a *API) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := a.now()
		a.returnJson(w, http.StatusOK, HealthResponse{
			Status:      "healthy",
			Timestamp:   now.UTC().Format(time.RFC3339Nano),
			Uptime:      now.Sub(a.started).Seconds(),
			Environment: a.environment,
		})
	}
}
