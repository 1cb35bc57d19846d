// Package api serves the rallyauth HTTP surface: session exchange under
// /auth, the onboarding profile under /profile, and health and metrics.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"git.sr.ht/~jakintosh/rallyauth/internal/metrics"
	"git.sr.ht/~jakintosh/rallyauth/internal/service"
)

const (
	DefaultPrefix         = "/api/v1"
	DefaultRateLimit      = 100
	DefaultRateWindow     = 15 * time.Minute
	DefaultRequestTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

type Options struct {
	Prefix         string
	RateLimit      int
	RateWindow     time.Duration
	RequestTimeout time.Duration
	Environment    string

	// Metrics and Gatherer are optional. Without a Gatherer, /metrics is
	// not mounted.
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

type API struct {
	service     *service.Service
	metrics     *metrics.Collector
	gatherer    prometheus.Gatherer
	limiter     *RateLimiter
	validate    *validator.Validate
	log         *slog.Logger
	prefix      string
	timeout     time.Duration
	environment string
	started     time.Time
	now         func() time.Time
}

func New(svc *service.Service, opts Options) *API {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = DefaultRateWindow
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.Environment == "" {
		opts.Environment = "development"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	logger := opts.Logger.With("component", "api")
	return &API{
		service:     svc,
		metrics:     opts.Metrics,
		gatherer:    opts.Gatherer,
		limiter:     NewRateLimiter(opts.RateLimit, opts.RateWindow, logger),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		log:         logger,
		prefix:      opts.Prefix,
		timeout:     opts.RequestTimeout,
		environment: opts.Environment,
		started:     time.Now(),
		now:         time.Now,
	}
}

// Close stops background work owned by the API.
func (a *API) Close() {
	a.limiter.Stop()
}

type Envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp string    `json:"timestamp"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	errUnauthorized = APIError{Code: "UNAUTHORIZED", Message: "Authentication required"}
	errNotFound     = APIError{Code: "NOT_FOUND", Message: "Resource not found"}
	errConflict     = APIError{Code: "CONFLICT", Message: "Username is already taken"}
	errValidation   = APIError{Code: "VALIDATION_ERROR", Message: "Invalid input data"}
	errInternal     = APIError{Code: "INTERNAL_ERROR", Message: "Internal server error"}
	errRateLimited  = APIError{Code: "RATE_LIMITED", Message: "Too many requests"}
)

// decodeRequest reads a JSON body into req and validates it. On failure the
// 400 response has already been written.
func (a *API) decodeRequest(req any, w http.ResponseWriter, r *http.Request) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(req); err != nil {
		a.logApiErr(r, "bad json request")
		a.returnError(w, http.StatusBadRequest, errValidation)
		return false
	}
	if err := a.validate.Struct(req); err != nil {
		a.logApiErr(r, "invalid request: "+err.Error())
		a.returnError(w, http.StatusBadRequest, errValidation)
		return false
	}
	return true
}

func (a *API) returnJson(w http.ResponseWriter, status int, data any) {
	a.writeEnvelope(w, status, Envelope{Success: true, Data: data})
}

func (a *API) returnError(w http.ResponseWriter, status int, apiErr APIError) {
	a.writeEnvelope(w, status, Envelope{Success: false, Error: &apiErr})
}

func (a *API) writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	env.Timestamp = a.now().UTC().Format(time.RFC3339Nano)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		a.log.Error("failed to write response", "error", err)
	}
}

// writeError maps a service error kind onto its status and wire code. The
// cause is logged, never sent.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := http.StatusInternalServerError, errInternal
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		status, apiErr = http.StatusUnauthorized, errUnauthorized
	case errors.Is(err, service.ErrNotFound):
		status, apiErr = http.StatusNotFound, errNotFound
	case errors.Is(err, service.ErrConflict):
		status, apiErr = http.StatusConflict, errConflict
	case errors.Is(err, service.ErrValidation):
		status, apiErr = http.StatusBadRequest, errValidation
	}
	if status >= http.StatusInternalServerError {
		a.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		a.logApiErr(r, err.Error())
	}
	a.returnError(w, status, apiErr)
}

func (a *API) logApiErr(r *http.Request, msg string) {
	a.log.Debug(msg, "method", r.Method, "path", r.URL.Path)
}
