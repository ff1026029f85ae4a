package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/sahihnews/sahihnews/internal/models"
)

var selectApplication = psql.
	Select(
		"id",
		"user_id",
		"from_level",
		"to_level",
		"status",
		"created_at",
		"resolved_at",
		"resolved_by",
	).
	From("level_applications")

func (s *store) CreateApplication(ctx context.Context, app *models.LevelApplication) error {
	app.Status = models.ApplicationPending
	sql, args, _ := psql.
		Insert("level_applications").
		Columns("user_id", "from_level", "to_level", "status").
		Values(app.UserID, app.FromLevel, app.ToLevel, app.Status).
		Suffix("RETURNING id, created_at").
		ToSql()

	err := s.db.QueryRow(ctx, sql, args...).Scan(&app.ID, &app.CreatedAt)
	return mapErr(err)
}

func (s *store) ReadApplication(ctx context.Context, appID int) (*models.LevelApplication, error) {
	sql, args, _ := selectApplication.Where(sq.Eq{"id": appID}).ToSql()
	return s.getApplication(ctx, sql, args)
}

func (s *store) ReadPendingApplication(ctx context.Context, userID int) (*models.LevelApplication, error) {
	sql, args, _ := selectApplication.
		Where(sq.Eq{"user_id": userID, "status": models.ApplicationPending}).
		ToSql()
	return s.getApplication(ctx, sql, args)
}

func (s *store) getApplication(ctx context.Context, sql string, args []interface{}) (*models.LevelApplication, error) {
	var app models.LevelApplication
	err := pgxscan.Get(ctx, s.db, &app, sql, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	return &app, nil
}

// ResolveApplication moves a pending application to its final status.
// Resolving an application twice is a conflict.
func (s *store) ResolveApplication(ctx context.Context, app *models.LevelApplication) error {
	sql, args, _ := psql.
		Update("level_applications").
		Set("status", app.Status).
		Set("resolved_at", app.ResolvedAt).
		Set("resolved_by", app.ResolvedBy).
		Where(sq.Eq{"id": app.ID, "status": models.ApplicationPending}).
		ToSql()

	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: application %d is not pending", models.ErrConflict, app.ID)
	}
	return nil
}
