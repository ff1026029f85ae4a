// Package service exposes the consensus engine to the outer layers. Every
// mutation of a post runs its read-recompute-write cycle in one store
// transaction, retried on optimistic-lock conflicts.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sahihnews/sahihnews/internal/consensus"
	"github.com/sahihnews/sahihnews/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sahihnews/sahihnews/internal/service"

type Engine struct {
	store  models.Store
	policy consensus.Policy
	log    zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

func NewEngine(store models.Store, policy consensus.Policy, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		policy: policy,
		log:    log.With().Str("component", "engine").Logger(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Policy() consensus.Policy {
	return e.policy
}

func (e *Engine) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "Engine."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// withRetry runs fn until it succeeds, fails with something other than
// ErrConflict, or policy.MaxAttempts is reached. Exhausting the attempts
// yields ErrTransient.
func (e *Engine) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || !errors.Is(err, models.ErrConflict) {
			return err
		}
		trace.SpanFromContext(ctx).AddEvent("conflict", trace.WithAttributes(attribute.Int("attempt", attempt)))
		if attempt >= e.policy.MaxAttempts {
			e.log.Warn().Str("op", op).Int("attempts", attempt).Err(err).Msg("giving up after conflicts")
			return fmt.Errorf("%w: %s after %d attempts: %v", models.ErrTransient, op, attempt, err)
		}
		e.log.Debug().Str("op", op).Int("attempt", attempt).Err(err).Msg("retrying after conflict")
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// applyDelta skips empty deltas and users that no longer exist.
func (e *Engine) applyDelta(ctx context.Context, tx models.StoreTx, userID int, delta models.UserDelta) error {
	if delta.IsZero() {
		return nil
	}
	err := tx.ApplyUserDelta(ctx, userID, delta)
	if errors.Is(err, models.ErrNotFound) {
		e.log.Debug().Int("user", userID).Msg("skipping delta for missing user")
		return nil
	}
	return err
}

func (e *Engine) notify(ctx context.Context, tx models.StoreTx, userID int, typ models.NotifType, title, text, path string) error {
	return tx.SendNotification(ctx, &models.Notification{
		UserID:    userID,
		NotifType: typ,
		Title:     title,
		Text:      text,
		ActionURL: url.URL{Path: path},
	})
}

// readActor loads the authenticated user behind a request. A user unknown
// to the store is not authenticated.
func readActor(ctx context.Context, tx models.StoreTx, userID int) (*models.User, error) {
	u, err := tx.ReadUser(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user %d", models.ErrUnauthorized, userID)
	}
	return u, err
}
