package db

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgconn"
	"github.com/sahihnews/sahihnews/internal/models"
)

func (s *store) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.ReviewerLevel == "" {
		user.ReviewerLevel = models.LevelNone
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.LevelSince.IsZero() {
		user.LevelSince = user.CreatedAt
	}
	user.CredibilityScore = models.ClampCredibility(user.CredibilityScore)

	sql, args, _ := psql.
		Insert("users").
		Columns(
			"id",
			"username",
			"display_name",
			"bio",
			"avatar_url",
			"credibility_score",
			"reviewer_level",
			"suspended",
			"level_since",
			"role",
			"is_verified",
			"created_at",
		).
		Values(
			user.ID,
			user.Username,
			user.DisplayName,
			user.Bio,
			user.AvatarURL,
			user.CredibilityScore,
			user.ReviewerLevel,
			user.Suspended,
			user.LevelSince,
			user.Role,
			user.IsVerified,
			user.CreatedAt,
		).
		ToSql()

	_, err := s.db.Exec(ctx, sql, args...)
	return mapErr(err)
}

func (s *store) ReadUser(ctx context.Context, userID int) (*models.User, error) {
	sql, args, _ := psql.
		Select(
			"id",
			"username",
			"display_name",
			"bio",
			"avatar_url",
			"credibility_score",
			"reviewer_level",
			"suspended",
			"review_count",
			"review_matches",
			"level_review_count",
			"level_since",
			"role",
			"is_verified",
			"created_at",
		).
		From("users").
		Where(sq.Eq{"id": userID}).
		ToSql()

	var user models.User
	err := pgxscan.Get(ctx, s.db, &user, sql, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (s *store) UpdateProfile(ctx context.Context, identity models.Identity) error {
	sql, args, _ := psql.
		Update("users").
		Set("username", identity.Username).
		Set("display_name", identity.DisplayName).
		Set("avatar_url", identity.AvatarURL).
		Where(sq.Eq{"id": identity.UserID}).
		ToSql()

	tag, err := s.db.Exec(ctx, sql, args...)
	return affectedOne(tag, err, "user", identity.UserID)
}

func (s *store) ApplyUserDelta(ctx context.Context, userID int, delta models.UserDelta) error {
	sql, args, _ := psql.
		Update("users").
		Set("credibility_score", sq.Expr("LEAST(?::integer, GREATEST(?::integer, credibility_score + ?))",
			models.MaxCredibility, models.MinCredibility, delta.Credibility)).
		Set("review_count", sq.Expr("review_count + ?", delta.Reviews)).
		Set("review_matches", sq.Expr("review_matches + ?", delta.Matches)).
		Set("level_review_count", sq.Expr("level_review_count + ?", delta.LevelReviews)).
		Where(sq.Eq{"id": userID}).
		ToSql()

	tag, err := s.db.Exec(ctx, sql, args...)
	return affectedOne(tag, err, "user", userID)
}

func (s *store) SetReviewerLevel(ctx context.Context, userID int, level models.ReviewerLevel, since time.Time) error {
	sql, args, _ := psql.
		Update("users").
		Set("reviewer_level", level).
		Set("level_since", since).
		Set("level_review_count", 0).
		Where(sq.Eq{"id": userID}).
		ToSql()

	tag, err := s.db.Exec(ctx, sql, args...)
	return affectedOne(tag, err, "user", userID)
}

func (s *store) SetSuspended(ctx context.Context, userID int, suspended bool) error {
	sql, args, _ := psql.
		Update("users").
		Set("suspended", suspended).
		Where(sq.Eq{"id": userID}).
		ToSql()

	tag, err := s.db.Exec(ctx, sql, args...)
	return affectedOne(tag, err, "user", userID)
}

func affectedOne(tag pgconn.CommandTag, err error, what string, id int) error {
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %d", models.ErrNotFound, what, id)
	}
	return nil
}
