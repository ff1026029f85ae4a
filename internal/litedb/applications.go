package litedb

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/sahihnews/sahihnews/internal/models"
)

var selectApplication = lite.
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
	app.CreatedAt = now()
	query, args, _ := lite.
		Insert("level_applications").
		Columns("user_id", "from_level", "to_level", "status", "created_at").
		Values(app.UserID, string(app.FromLevel), string(app.ToLevel), string(app.Status), app.CreatedAt.Unix()).
		Suffix("RETURNING id").
		ToSql()

	err := s.db.QueryRowContext(ctx, query, args...).Scan(&app.ID)
	return mapErr(err)
}

func (s *store) ReadApplication(ctx context.Context, appID int) (*models.LevelApplication, error) {
	query, args, _ := selectApplication.Where(sq.Eq{"id": appID}).ToSql()
	return s.getApplication(ctx, query, args)
}

func (s *store) ReadPendingApplication(ctx context.Context, userID int) (*models.LevelApplication, error) {
	query, args, _ := selectApplication.
		Where(sq.Eq{"user_id": userID, "status": string(models.ApplicationPending)}).
		ToSql()
	return s.getApplication(ctx, query, args)
}

func (s *store) getApplication(ctx context.Context, query string, args []interface{}) (*models.LevelApplication, error) {
	var (
		app              models.LevelApplication
		from, to, status string
		createdAt        int64
		resolvedAt       sql.NullInt64
		resolvedBy       sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&app.ID,
		&app.UserID,
		&from,
		&to,
		&status,
		&createdAt,
		&resolvedAt,
		&resolvedBy,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	app.FromLevel = models.ReviewerLevel(from)
	app.ToLevel = models.ReviewerLevel(to)
	app.Status = models.ApplicationStatus(status)
	app.CreatedAt = fromUnix(createdAt)
	if resolvedAt.Valid {
		t := fromUnix(resolvedAt.Int64)
		app.ResolvedAt = &t
	}
	if resolvedBy.Valid {
		by := int(resolvedBy.Int64)
		app.ResolvedBy = &by
	}
	return &app, nil
}

func (s *store) ResolveApplication(ctx context.Context, app *models.LevelApplication) error {
	var resolvedAt, resolvedBy interface{}
	if app.ResolvedAt != nil {
		resolvedAt = app.ResolvedAt.Unix()
	}
	if app.ResolvedBy != nil {
		resolvedBy = *app.ResolvedBy
	}
	query, args, _ := lite.
		Update("level_applications").
		Set("status", string(app.Status)).
		Set("resolved_at", resolvedAt).
		Set("resolved_by", resolvedBy).
		Where(sq.Eq{"id": app.ID, "status": string(models.ApplicationPending)}).
		ToSql()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: application %d is not pending", models.ErrConflict, app.ID)
	}
	return nil
}
