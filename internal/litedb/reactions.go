package litedb

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/sahihnews/sahihnews/internal/models"
)

func (s *store) ReadReaction(ctx context.Context, postID int, userID int) (*models.Reaction, error) {
	sql, args, _ := lite.
		Select("id", "post_id", "user_id", "type", "created_at").
		From("reactions").
		Where(sq.Eq{"post_id": postID, "user_id": userID}).
		ToSql()

	var (
		r         models.Reaction
		typ       string
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, sql, args...).Scan(&r.ID, &r.PostID, &r.UserID, &typ, &createdAt)
	if err != nil {
		return nil, mapErr(err)
	}
	r.Type = models.ReactionType(typ)
	r.CreatedAt = fromUnix(createdAt)
	return &r, nil
}

func (s *store) SetReaction(ctx context.Context, reaction *models.Reaction) error {
	reaction.CreatedAt = now()
	sql, args, _ := lite.
		Insert("reactions").
		Columns("post_id", "user_id", "type", "created_at").
		Values(reaction.PostID, reaction.UserID, string(reaction.Type), reaction.CreatedAt.Unix()).
		Suffix(`ON CONFLICT(post_id, user_id) DO UPDATE SET
			type = excluded.type,
			created_at = excluded.created_at
		RETURNING id`).
		ToSql()

	err := s.db.QueryRowContext(ctx, sql, args...).Scan(&reaction.ID)
	return mapErr(err)
}

func (s *store) DeleteReaction(ctx context.Context, postID int, userID int) error {
	sql, args, _ := lite.
		Delete("reactions").
		Where(sq.Eq{"post_id": postID, "user_id": userID}).
		ToSql()
	_, err := s.db.ExecContext(ctx, sql, args...)
	return mapErr(err)
}

func (s *store) CountReactions(ctx context.Context, postID int) (models.ReactionTally, error) {
	tally := models.ReactionTally{}
	sql, args, _ := lite.
		Select("type", "COUNT(*)").
		From("reactions").
		Where(sq.Eq{"post_id": postID}).
		GroupBy("type").
		ToSql()

	rows, err := s.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return tally, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return tally, fmt.Errorf("scan reaction count: %w", err)
		}
		switch models.ReactionType(typ) {
		case models.ReactionAccurate:
			tally.Accurate = count
		case models.ReactionInaccurate:
			tally.Inaccurate = count
		}
	}
	return tally, rows.Err()
}
