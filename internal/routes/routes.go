// Package routes exposes the consensus engine as a JSON API.
package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/sahihnews/sahihnews/internal/auth"
	"github.com/sahihnews/sahihnews/internal/models"
	"github.com/sahihnews/sahihnews/internal/service"
)

const maxBodyBytes = 64 << 10

type Routes struct {
	engine   *service.Engine
	verifier *auth.Verifier
}

func NewRouter(engine *service.Engine, verifier *auth.Verifier, log zerolog.Logger) chi.Router {
	routes := &Routes{
		engine:   engine,
		verifier: verifier,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log))
	r.Use(routes.RequestLogCtx)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Send()
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(routes.TraceCtx)
	r.Use(routes.UserCtx)

	r.Route("/api", func(r chi.Router) {
		r.Route("/posts", routes.PostsRouter)
		r.Route("/users", routes.UsersRouter)
		r.With(routes.EnforceUser).Route("/me", routes.MeRouter)
		r.With(routes.EnforceUser).Route("/moderation", routes.ModerationRouter)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

// AppError is an error that knows how it is presented over HTTP.
type AppError interface {
	error
	StatusCode() int
}

type ErrHTTP struct {
	Code      int
	Message   string
	Retryable bool
	Cause     error
}

func (e *ErrHTTP) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ErrHTTP) StatusCode() int {
	return e.Code
}

func (e *ErrHTTP) Unwrap() error {
	return e.Cause
}

// ErrFromDomain maps engine errors to their HTTP status.
func ErrFromDomain(err error) *ErrHTTP {
	var appErr *ErrHTTP
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, models.ErrNotFound):
		return &ErrHTTP{Code: http.StatusNotFound, Message: err.Error(), Cause: err}
	case errors.Is(err, models.ErrUnauthorized):
		return &ErrHTTP{Code: http.StatusUnauthorized, Message: err.Error(), Cause: err}
	case errors.Is(err, models.ErrPermDenied):
		return &ErrHTTP{Code: http.StatusForbidden, Message: err.Error(), Cause: err}
	case models.IsRetryable(err):
		return &ErrHTTP{Code: http.StatusConflict, Message: "concurrent update, retry the request", Retryable: true, Cause: err}
	case errors.Is(err, models.ErrInvalidInput):
		return &ErrHTTP{Code: http.StatusBadRequest, Message: err.Error(), Cause: err}
	}
	return &ErrHTTP{Code: http.StatusInternalServerError, Message: "internal server error", Cause: err}
}

func (routes *Routes) AppHandler(handler func(w http.ResponseWriter, r *http.Request) AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := handler(w, r); err != nil {
			routes.HandleErr(w, r, err)
		}
	}
}

func (routes *Routes) HandleErr(w http.ResponseWriter, r *http.Request, err error) {
	appErr := ErrFromDomain(err)
	event := hlog.FromRequest(r).Debug()
	if appErr.Code >= http.StatusInternalServerError {
		event = hlog.FromRequest(r).Error()
	}
	event.
		Int("status", appErr.Code).
		Err(appErr.Cause).
		Msg(appErr.Message)

	body := struct {
		Error     string `json:"error"`
		Retryable bool   `json:"retryable,omitempty"`
	}{appErr.Message, appErr.Retryable}
	writeJSON(w, appErr.Code, body)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) AppError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &ErrHTTP{Code: http.StatusBadRequest, Message: "malformed request body", Cause: err}
	}
	return nil
}

func intParam(r *http.Request, name string) (int, AppError) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, &ErrHTTP{Code: http.StatusBadRequest, Message: fmt.Sprintf("invalid %s %q", name, raw)}
	}
	return id, nil
}
