package litedb

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/sahihnews/sahihnews/internal/models"
)

func (s *store) SendNotification(ctx context.Context, notif *models.Notification) error {
	sql, args, _ := lite.
		Insert("notifications").
		Columns("user_id", "notif_type", "title", "text", "action_url", "created_at").
		Values(notif.UserID, string(notif.NotifType), notif.Title, notif.Text, notif.ActionURL.String(), now().Unix()).
		ToSql()
	_, err := s.db.ExecContext(ctx, sql, args...)
	return mapErr(err)
}

func (s *store) ListNotifications(ctx context.Context, userID int) ([]models.NotifView, error) {
	sql, args, _ := lite.
		Select("id", "notif_type", "title", "text", "action_url", "created_at").
		From("notifications").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id DESC").
		ToSql()

	rows, err := s.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	notifs := []models.NotifView{}
	for rows.Next() {
		var (
			n         models.NotifView
			typ       string
			createdAt int64
		)
		if err := rows.Scan(&n.ID, &typ, &n.Title, &n.Text, &n.ActionURL, &createdAt); err != nil {
			return nil, err
		}
		n.NotifType = models.NotifType(typ)
		n.CreatedAt = fromUnix(createdAt)
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}
