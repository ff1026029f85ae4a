package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sahihnews/sahihnews/internal/consensus"
	"github.com/sahihnews/sahihnews/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// EnsureUser provisions the user behind an identity on first sight and keeps
// the profile fields in sync with the identity provider afterwards.
func (e *Engine) EnsureUser(ctx context.Context, id models.Identity) (user *models.User, err error) {
	ctx, span := e.startSpan(ctx, "EnsureUser", attribute.Int("user.id", id.UserID))
	defer func() { endSpan(span, err) }()

	if id.UserID <= 0 {
		return nil, fmt.Errorf("%w: invalid user id %d", models.ErrUnauthorized, id.UserID)
	}
	if id.Username == "" {
		id.Username = fmt.Sprintf("user%d", id.UserID)
	}

	user, err = e.store.ReadUser(ctx, id.UserID)
	if err == nil {
		if user.Username == id.Username && user.DisplayName == id.DisplayName && user.AvatarURL == id.AvatarURL {
			return user, nil
		}
		if err := e.store.UpdateProfile(ctx, id); err != nil {
			return nil, err
		}
		user.Username, user.DisplayName, user.AvatarURL = id.Username, id.DisplayName, id.AvatarURL
		return user, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	now := e.now()
	user = &models.User{
		ID:               id.UserID,
		Username:         id.Username,
		DisplayName:      id.DisplayName,
		AvatarURL:        id.AvatarURL,
		CredibilityScore: models.DefaultCredibility,
		ReviewerLevel:    models.LevelNone,
		Role:             models.RoleUser,
		CreatedAt:        now,
		LevelSince:       now,
	}
	err = e.store.CreateUser(ctx, user)
	if errors.Is(err, models.ErrConflict) {
		// Provisioned by a concurrent request.
		return e.store.ReadUser(ctx, id.UserID)
	}
	if err != nil {
		return nil, err
	}
	e.log.Info().Int("user", user.ID).Str("username", user.Username).Msg("user provisioned")
	return user, nil
}

func (e *Engine) ReadUser(ctx context.Context, userID int) (*models.User, error) {
	return e.store.ReadUser(ctx, userID)
}

func (e *Engine) ListNotifications(ctx context.Context, userID int) ([]models.NotifView, error) {
	return e.store.ListNotifications(ctx, userID)
}

func (e *Engine) CheckEligibility(ctx context.Context, userID int) (elig consensus.Eligibility, err error) {
	ctx, span := e.startSpan(ctx, "CheckEligibility", attribute.Int("user.id", userID))
	defer func() { endSpan(span, err) }()

	user, err := e.store.ReadUser(ctx, userID)
	if err != nil {
		return elig, err
	}
	return e.checkEligibility(ctx, e.store, user)
}

func (e *Engine) checkEligibility(ctx context.Context, tx models.StoreTx, user *models.User) (consensus.Eligibility, error) {
	posts, err := tx.CountUserPosts(ctx, user.ID)
	if err != nil {
		return consensus.Eligibility{}, err
	}
	return consensus.CheckEligibility(*user, posts, e.now(), e.policy), nil
}

type ApplicationResult struct {
	consensus.Eligibility
	// Application is the pending application, nil when not eligible.
	Application *models.LevelApplication `json:"application,omitempty"`
}

// ApplyForReviewerLevel checks the eligibility of the user for the next
// level and, when eligible, files a pending application. Applying again
// while an application is pending returns the existing one.
func (e *Engine) ApplyForReviewerLevel(ctx context.Context, userID int) (res ApplicationResult, err error) {
	ctx, span := e.startSpan(ctx, "ApplyForReviewerLevel", attribute.Int("user.id", userID))
	defer func() { endSpan(span, err) }()

	err = e.store.WithTx(ctx, func(ctx context.Context, tx models.StoreTx) error {
		user, err := readActor(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := user.Perms().Require(models.PermApplyForLevel); err != nil {
			return err
		}
		res.Eligibility, err = e.checkEligibility(ctx, tx, user)
		if err != nil || !res.Eligible {
			return err
		}

		pending, err := tx.ReadPendingApplication(ctx, userID)
		if err == nil {
			res.Application = pending
			return nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}
		app := &models.LevelApplication{
			UserID:    userID,
			FromLevel: res.From,
			ToLevel:   res.To,
		}
		if err := tx.CreateApplication(ctx, app); err != nil {
			return err
		}
		res.Application = app
		return nil
	})
	if err != nil {
		return ApplicationResult{}, err
	}
	if res.Application != nil {
		e.log.Info().Int("user", userID).Int("application", res.Application.ID).
			Str("to", string(res.Application.ToLevel)).Msg("reviewer level application pending")
	}
	return res, nil
}

// ResolveApplication approves or rejects a pending application. Approval
// re-checks eligibility and promotes the applicant by exactly one level.
func (e *Engine) ResolveApplication(ctx context.Context, actorID, appID int, approve bool) (app *models.LevelApplication, err error) {
	ctx, span := e.startSpan(ctx, "ResolveApplication",
		attribute.Int("user.id", actorID),
		attribute.Int("application.id", appID),
		attribute.Bool("approve", approve))
	defer func() { endSpan(span, err) }()

	err = e.store.WithTx(ctx, func(ctx context.Context, tx models.StoreTx) error {
		actor, err := readActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := actor.Perms().Require(models.PermResolveApplication); err != nil {
			return err
		}
		app, err = tx.ReadApplication(ctx, appID)
		if err != nil {
			return err
		}
		if app.UserID == actorID {
			return fmt.Errorf("%w: cannot resolve your own application", models.ErrPermDenied)
		}
		if app.Status != models.ApplicationPending {
			return fmt.Errorf("%w: application %d is already %s", models.ErrInvalidInput, appID, app.Status)
		}

		now := e.now()
		app.Status = models.ApplicationRejected
		text := fmt.Sprintf("Your application for reviewer level %s was rejected.", app.ToLevel)
		if approve {
			user, err := tx.ReadUser(ctx, app.UserID)
			if err != nil {
				return err
			}
			if user.ReviewerLevel != app.FromLevel {
				return fmt.Errorf("%w: applicant is now %s, application was for %s -> %s",
					consensus.ErrInvalidTransition, user.ReviewerLevel, app.FromLevel, app.ToLevel)
			}
			posts, err := tx.CountUserPosts(ctx, user.ID)
			if err != nil {
				return err
			}
			level, err := consensus.Promote(*user, posts, now, e.policy)
			if err != nil {
				return err
			}
			if err := tx.SetReviewerLevel(ctx, user.ID, level, now); err != nil {
				return err
			}
			app.Status = models.ApplicationApproved
			text = fmt.Sprintf("You are now a level %s reviewer.", level)
		}
		app.ResolvedAt = &now
		app.ResolvedBy = &actorID
		if err := tx.ResolveApplication(ctx, app); err != nil {
			return err
		}
		return e.notify(ctx, tx, app.UserID, models.NotifTypeApplicationResolved,
			"Reviewer application "+string(app.Status), text,
			fmt.Sprintf("/api/users/%d", app.UserID))
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Int("application", app.ID).Int("user", app.UserID).Int("actor", actorID).
		Str("status", string(app.Status)).Msg("reviewer level application resolved")
	return app, nil
}

func (e *Engine) Suspend(ctx context.Context, actorID, userID int) (*models.User, error) {
	return e.setSuspended(ctx, actorID, userID, true)
}

func (e *Engine) Unsuspend(ctx context.Context, actorID, userID int) (*models.User, error) {
	return e.setSuspended(ctx, actorID, userID, false)
}

func (e *Engine) setSuspended(ctx context.Context, actorID, userID int, suspended bool) (user *models.User, err error) {
	ctx, span := e.startSpan(ctx, "SetSuspended",
		attribute.Int("user.id", actorID),
		attribute.Int("target.id", userID),
		attribute.Bool("suspended", suspended))
	defer func() { endSpan(span, err) }()

	err = e.store.WithTx(ctx, func(ctx context.Context, tx models.StoreTx) error {
		actor, err := readActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := actor.Perms().Require(models.PermSuspendReviewer); err != nil {
			return err
		}
		if actorID == userID {
			return fmt.Errorf("%w: cannot change your own suspension", models.ErrPermDenied)
		}
		user, err = tx.ReadUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.Suspended == suspended {
			return nil
		}
		if err := tx.SetSuspended(ctx, userID, suspended); err != nil {
			return err
		}
		user.Suspended = suspended
		title, text := "Reviewing suspended", "A moderator suspended your reviewer privileges."
		if !suspended {
			title, text = "Reviewing restored", "A moderator lifted your suspension."
		}
		return e.notify(ctx, tx, userID, models.NotifTypeSuspended, title, text, fmt.Sprintf("/api/users/%d", userID))
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Int("user", userID).Int("actor", actorID).Bool("suspended", suspended).Msg("suspension changed")
	return user, nil
}

// Demote moves a reviewer one level down. It is the only path lowering a level.
func (e *Engine) Demote(ctx context.Context, actorID, userID int) (user *models.User, err error) {
	ctx, span := e.startSpan(ctx, "Demote",
		attribute.Int("user.id", actorID),
		attribute.Int("target.id", userID))
	defer func() { endSpan(span, err) }()

	err = e.store.WithTx(ctx, func(ctx context.Context, tx models.StoreTx) error {
		actor, err := readActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := actor.Perms().Require(models.PermDemoteReviewer); err != nil {
			return err
		}
		user, err = tx.ReadUser(ctx, userID)
		if err != nil {
			return err
		}
		level, err := consensus.Demote(*user)
		if err != nil {
			return err
		}
		now := e.now()
		if err := tx.SetReviewerLevel(ctx, userID, level, now); err != nil {
			return err
		}
		user.ReviewerLevel = level
		user.LevelSince = now
		user.LevelReviewCount = 0
		return e.notify(ctx, tx, userID, models.NotifTypeLevelChanged,
			"Reviewer level lowered",
			fmt.Sprintf("Your reviewer level is now %s.", level),
			fmt.Sprintf("/api/users/%d", userID))
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Int("user", userID).Int("actor", actorID).Str("level", string(user.ReviewerLevel)).Msg("reviewer demoted")
	return user, nil
}
