package litedb

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
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
		user.CreatedAt = now()
	}
	if user.LevelSince.IsZero() {
		user.LevelSince = user.CreatedAt
	}
	user.CredibilityScore = models.ClampCredibility(user.CredibilityScore)

	sql, args, _ := lite.
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
			string(user.ReviewerLevel),
			user.Suspended,
			user.LevelSince.Unix(),
			string(user.Role),
			user.IsVerified,
			user.CreatedAt.Unix(),
		).
		ToSql()

	_, err := s.db.ExecContext(ctx, sql, args...)
	return mapErr(err)
}

func (s *store) ReadUser(ctx context.Context, userID int) (*models.User, error) {
	sql, args, _ := lite.
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

	var (
		u                     models.User
		level, role           string
		levelSince, createdAt int64
	)
	err := s.db.QueryRowContext(ctx, sql, args...).Scan(
		&u.ID,
		&u.Username,
		&u.DisplayName,
		&u.Bio,
		&u.AvatarURL,
		&u.CredibilityScore,
		&level,
		&u.Suspended,
		&u.ReviewCount,
		&u.ReviewMatches,
		&u.LevelReviewCount,
		&levelSince,
		&role,
		&u.IsVerified,
		&createdAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	u.ReviewerLevel = models.ReviewerLevel(level)
	u.Role = models.UserRole(role)
	u.LevelSince = fromUnix(levelSince)
	u.CreatedAt = fromUnix(createdAt)
	return &u, nil
}

func (s *store) UpdateProfile(ctx context.Context, identity models.Identity) error {
	sql, args, _ := lite.
		Update("users").
		Set("username", identity.Username).
		Set("display_name", identity.DisplayName).
		Set("avatar_url", identity.AvatarURL).
		Where(sq.Eq{"id": identity.UserID}).
		ToSql()

	res, err := s.db.ExecContext(ctx, sql, args...)
	return affectedOne(res, err, "user", identity.UserID)
}

// ApplyUserDelta increments the counters in one statement; SQLite's scalar
// MIN and MAX keep the score inside its range.
func (s *store) ApplyUserDelta(ctx context.Context, userID int, delta models.UserDelta) error {
	sql, args, _ := lite.
		Update("users").
		Set("credibility_score", sq.Expr("MIN(?, MAX(?, credibility_score + ?))",
			models.MaxCredibility, models.MinCredibility, delta.Credibility)).
		Set("review_count", sq.Expr("review_count + ?", delta.Reviews)).
		Set("review_matches", sq.Expr("review_matches + ?", delta.Matches)).
		Set("level_review_count", sq.Expr("level_review_count + ?", delta.LevelReviews)).
		Where(sq.Eq{"id": userID}).
		ToSql()

	res, err := s.db.ExecContext(ctx, sql, args...)
	return affectedOne(res, err, "user", userID)
}

func (s *store) SetReviewerLevel(ctx context.Context, userID int, level models.ReviewerLevel, since time.Time) error {
	sql, args, _ := lite.
		Update("users").
		Set("reviewer_level", string(level)).
		Set("level_since", since.Unix()).
		Set("level_review_count", 0).
		Where(sq.Eq{"id": userID}).
		ToSql()

	res, err := s.db.ExecContext(ctx, sql, args...)
	return affectedOne(res, err, "user", userID)
}

func (s *store) SetSuspended(ctx context.Context, userID int, suspended bool) error {
	sql, args, _ := lite.
		Update("users").
		Set("suspended", suspended).
		Where(sq.Eq{"id": userID}).
		ToSql()

	res, err := s.db.ExecContext(ctx, sql, args...)
	return affectedOne(res, err, "user", userID)
}
