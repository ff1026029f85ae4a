package db

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/sahihnews/sahihnews/internal/models"
)

func (s *store) SendNotification(ctx context.Context, notif *models.Notification) error {
	sql, args, _ := psql.
		Insert("notifications").
		Columns("user_id", "notif_type", "title", "text", "action_url").
		Values(notif.UserID, notif.NotifType, notif.Title, notif.Text, notif.ActionURL.String()).
		ToSql()
	_, err := s.db.Exec(ctx, sql, args...)
	return mapErr(err)
}

func (s *store) ListNotifications(ctx context.Context, userID int) ([]models.NotifView, error) {
	notifs := []models.NotifView{}
	sql, args, _ := psql.Select("id", "notif_type", "title", "text", "action_url", "created_at").
		From("notifications").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id DESC").
		ToSql()

	err := pgxscan.Select(ctx, s.db, &notifs, sql, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	return notifs, nil
}
