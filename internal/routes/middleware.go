package routes

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/sahihnews/sahihnews/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	UserCtxKey ctxKey = iota
)

const tracerName = "github.com/sahihnews/sahihnews/internal/routes"

// GetUser returns the authenticated user, nil for anonymous requests.
func GetUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(UserCtxKey).(*models.User)
	return user
}

// RequestLogCtx adds the request id to every log line of the request.
func (routes *Routes) RequestLogCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

// TraceCtx opens a server span per request, continuing a W3C trace context
// sent by the caller, and tags the request logger with its ids.
func (routes *Routes) TraceCtx(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			))
		defer span.End()

		if sc := span.SpanContext(); sc.IsValid() {
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
			})
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserCtx authenticates the bearer token, when present, and provisions the
// user behind it. Requests without a token continue anonymously.
func (routes *Routes) UserCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			routes.HandleErr(w, r, &ErrHTTP{Code: http.StatusUnauthorized, Message: "expected a bearer token"})
			return
		}
		identity, err := routes.verifier.Verify(token)
		if err != nil {
			routes.HandleErr(w, r, err)
			return
		}
		user, err := routes.engine.EnsureUser(r.Context(), identity)
		if err != nil {
			routes.HandleErr(w, r, err)
			return
		}
		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Int("user", user.ID)
		})
		ctx := context.WithValue(r.Context(), UserCtxKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (routes *Routes) EnforceUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r) == nil {
			routes.HandleErr(w, r, &ErrHTTP{Code: http.StatusUnauthorized, Message: "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
