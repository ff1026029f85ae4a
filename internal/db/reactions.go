package db

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/sahihnews/sahihnews/internal/models"
)

func (s *store) ReadReaction(ctx context.Context, postID int, userID int) (*models.Reaction, error) {
	sql, args, _ := psql.
		Select("id", "post_id", "user_id", "type", "created_at").
		From("reactions").
		Where(sq.Eq{"post_id": postID, "user_id": userID}).
		ToSql()

	var reaction models.Reaction
	err := pgxscan.Get(ctx, s.db, &reaction, sql, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	return &reaction, nil
}

func (s *store) SetReaction(ctx context.Context, reaction *models.Reaction) error {
	sql, args, _ := psql.
		Insert("reactions").
		Columns("post_id", "user_id", "type").
		Values(reaction.PostID, reaction.UserID, reaction.Type).
		Suffix(`ON CONFLICT (post_id, user_id) DO UPDATE SET
			type = EXCLUDED.type,
			created_at = now()
		RETURNING id, created_at`).
		ToSql()

	err := s.db.QueryRow(ctx, sql, args...).Scan(&reaction.ID, &reaction.CreatedAt)
	return mapErr(err)
}

func (s *store) DeleteReaction(ctx context.Context, postID int, userID int) error {
	sql, args, _ := psql.
		Delete("reactions").
		Where(sq.Eq{"post_id": postID, "user_id": userID}).
		ToSql()
	_, err := s.db.Exec(ctx, sql, args...)
	return mapErr(err)
}

func (s *store) CountReactions(ctx context.Context, postID int) (models.ReactionTally, error) {
	tally := models.ReactionTally{}
	sql, args, _ := psql.
		Select("type", "COUNT(*)").
		From("reactions").
		Where(sq.Eq{"post_id": postID}).
		GroupBy("type").
		ToSql()

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return tally, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var reactionType string
		var count int
		if err := rows.Scan(&reactionType, &count); err != nil {
			return tally, err
		}
		switch models.ReactionType(reactionType) {
		case models.ReactionAccurate:
			tally.Accurate = count
		case models.ReactionInaccurate:
			tally.Inaccurate = count
		}
	}
	return tally, rows.Err()
}
