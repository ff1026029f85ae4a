package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sahihnews/sahihnews/internal/models"
)

func (routes *Routes) UsersRouter(r chi.Router) {
	r.Get("/{userID}", routes.AppHandler(routes.GetProfile))
	r.Get("/{userID}/eligibility", routes.AppHandler(routes.GetEligibility))
}

func (routes *Routes) MeRouter(r chi.Router) {
	r.Get("/", routes.AppHandler(routes.GetMe))
	r.Get("/notifications", routes.AppHandler(routes.GetNotifications))
	r.Post("/reviewer-application", routes.AppHandler(routes.PostApplication))
}

func (routes *Routes) ModerationRouter(r chi.Router) {
	r.Post("/applications/{appID}/approve", routes.AppHandler(routes.resolveApplication(true)))
	r.Post("/applications/{appID}/reject", routes.AppHandler(routes.resolveApplication(false)))
	r.Post("/users/{userID}/suspend", routes.AppHandler(routes.moderateUser(routes.engine.Suspend)))
	r.Post("/users/{userID}/unsuspend", routes.AppHandler(routes.moderateUser(routes.engine.Unsuspend)))
	r.Post("/users/{userID}/demote", routes.AppHandler(routes.moderateUser(routes.engine.Demote)))
}

func (routes *Routes) GetProfile(w http.ResponseWriter, r *http.Request) AppError {
	userID, appErr := intParam(r, "userID")
	if appErr != nil {
		return appErr
	}
	user, err := routes.engine.ReadUser(r.Context(), userID)
	if err != nil {
		return ErrFromDomain(err)
	}
	writeJSON(w, http.StatusOK, user.View(time.Now()))
	return nil
}

func (routes *Routes) GetEligibility(w http.ResponseWriter, r *http.Request) AppError {
	userID, appErr := intParam(r, "userID")
	if appErr != nil {
		return appErr
	}
	elig, err := routes.engine.CheckEligibility(r.Context(), userID)
	if err != nil {
		return ErrFromDomain(err)
	}
	writeJSON(w, http.StatusOK, elig)
	return nil
}

func (routes *Routes) GetMe(w http.ResponseWriter, r *http.Request) AppError {
	user := GetUser(r)
	writeJSON(w, http.StatusOK, struct {
		models.UserView
		Role  models.UserRole `json:"role"`
		Perms []models.Perm   `json:"perms"`
	}{user.View(time.Now()), user.Role, user.Perms().List()})
	return nil
}

func (routes *Routes) GetNotifications(w http.ResponseWriter, r *http.Request) AppError {
	notifs, err := routes.engine.ListNotifications(r.Context(), GetUser(r).ID)
	if err != nil {
		return ErrFromDomain(err)
	}
	if notifs == nil {
		notifs = []models.NotifView{}
	}
	writeJSON(w, http.StatusOK, notifs)
	return nil
}

func (routes *Routes) PostApplication(w http.ResponseWriter, r *http.Request) AppError {
	res, err := routes.engine.ApplyForReviewerLevel(r.Context(), GetUser(r).ID)
	if err != nil {
		return ErrFromDomain(err)
	}
	status := http.StatusOK
	if res.Application != nil {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
	return nil
}

func (routes *Routes) resolveApplication(approve bool) func(w http.ResponseWriter, r *http.Request) AppError {
	return func(w http.ResponseWriter, r *http.Request) AppError {
		appID, appErr := intParam(r, "appID")
		if appErr != nil {
			return appErr
		}
		app, err := routes.engine.ResolveApplication(r.Context(), GetUser(r).ID, appID, approve)
		if err != nil {
			return ErrFromDomain(err)
		}
		writeJSON(w, http.StatusOK, app)
		return nil
	}
}

type moderationAction func(ctx context.Context, actorID, userID int) (*models.User, error)

func (routes *Routes) moderateUser(action moderationAction) func(w http.ResponseWriter, r *http.Request) AppError {
	return func(w http.ResponseWriter, r *http.Request) AppError {
		userID, appErr := intParam(r, "userID")
		if appErr != nil {
			return appErr
		}
		user, err := action(r.Context(), GetUser(r).ID, userID)
		if err != nil {
			return ErrFromDomain(err)
		}
		writeJSON(w, http.StatusOK, user.View(time.Now()))
		return nil
	}
}
