package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/sahihnews/sahihnews/internal/models"
)

func (s *store) ListReviews(ctx context.Context, postID int) ([]models.Review, error) {
	sql, args, _ := psql.
		Select(
			"r.id",
			"r.post_id",
			"r.reviewer_id",
			"r.verdict",
			"r.weight",
			"r.comment",
			"r.created_at",
			"r.updated_at",
			"r.since_version",
			"c.matched AS credited_match",
			"COALESCE(c.bonus_paid, false) AS bonus_paid",
		).
		From("reviews r").
		LeftJoin("review_credits c ON c.post_id = r.post_id AND c.reviewer_id = r.reviewer_id").
		Where(sq.Eq{"r.post_id": postID}).
		OrderBy("r.reviewer_id").
		ToSql()

	reviews := []models.Review{}
	err := pgxscan.Select(ctx, s.db, &reviews, sql, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	return reviews, nil
}

func (s *store) UpsertReview(ctx context.Context, review *models.Review) error {
	sql, args, _ := psql.
		Insert("reviews").
		Columns("post_id", "reviewer_id", "verdict", "weight", "comment", "since_version").
		Values(review.PostID, review.ReviewerID, review.Verdict, review.Weight, review.Comment, review.SinceVersion).
		Suffix(`ON CONFLICT (post_id, reviewer_id) DO UPDATE SET
			since_version = CASE WHEN reviews.verdict = EXCLUDED.verdict
				THEN reviews.since_version ELSE EXCLUDED.since_version END,
			verdict = EXCLUDED.verdict,
			weight = EXCLUDED.weight,
			comment = EXCLUDED.comment,
			updated_at = now()
		RETURNING id, created_at, updated_at, since_version`).
		ToSql()

	err := s.db.QueryRow(ctx, sql, args...).
		Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt, &review.SinceVersion)
	return mapErr(err)
}

func (s *store) DeleteReview(ctx context.Context, postID int, reviewerID int) error {
	sql, args, _ := psql.
		Delete("reviews").
		Where(sq.Eq{"post_id": postID, "reviewer_id": reviewerID}).
		ToSql()

	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: no review of user %d on post %d", models.ErrNotFound, reviewerID, postID)
	}
	return nil
}

func (s *store) SaveReviewCredit(ctx context.Context, credit models.ReviewCredit) error {
	sql, args, _ := psql.
		Insert("review_credits").
		Columns("post_id", "reviewer_id", "matched", "bonus_paid").
		Values(credit.PostID, credit.ReviewerID, credit.Matched, credit.BonusPaid).
		Suffix(`ON CONFLICT (post_id, reviewer_id) DO UPDATE SET
			matched = EXCLUDED.matched,
			bonus_paid = EXCLUDED.bonus_paid`).
		ToSql()

	_, err := s.db.Exec(ctx, sql, args...)
	return mapErr(err)
}
