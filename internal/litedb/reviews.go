package litedb

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/sahihnews/sahihnews/internal/models"
)

func (s *store) ListReviews(ctx context.Context, postID int) ([]models.Review, error) {
	query, args, _ := lite.
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
			"c.matched",
			"COALESCE(c.bonus_paid, 0)",
		).
		From("reviews r").
		LeftJoin("review_credits c ON c.post_id = r.post_id AND c.reviewer_id = r.reviewer_id").
		Where(sq.Eq{"r.post_id": postID}).
		OrderBy("r.reviewer_id").
		ToSql()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var (
			r                    models.Review
			verdict              string
			createdAt, updatedAt int64
			matched              sql.NullBool
		)
		err := rows.Scan(
			&r.ID,
			&r.PostID,
			&r.ReviewerID,
			&verdict,
			&r.Weight,
			&r.Comment,
			&createdAt,
			&updatedAt,
			&r.SinceVersion,
			&matched,
			&r.BonusPaid,
		)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.Verdict = models.Verdict(verdict)
		r.CreatedAt = fromUnix(createdAt)
		r.UpdatedAt = fromUnix(updatedAt)
		if matched.Valid {
			match := matched.Bool
			r.CreditedMatch = &match
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *store) UpsertReview(ctx context.Context, review *models.Review) error {
	t := now().Unix()
	query, args, _ := lite.
		Insert("reviews").
		Columns("post_id", "reviewer_id", "verdict", "weight", "comment", "created_at", "updated_at", "since_version").
		Values(review.PostID, review.ReviewerID, string(review.Verdict), review.Weight, review.Comment, t, t, review.SinceVersion).
		Suffix(`ON CONFLICT(post_id, reviewer_id) DO UPDATE SET
			since_version = CASE WHEN reviews.verdict = excluded.verdict
				THEN reviews.since_version ELSE excluded.since_version END,
			verdict = excluded.verdict,
			weight = excluded.weight,
			comment = excluded.comment,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at, since_version`).
		ToSql()

	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&review.ID, &createdAt, &updatedAt, &review.SinceVersion)
	if err != nil {
		return mapErr(err)
	}
	review.CreatedAt = fromUnix(createdAt)
	review.UpdatedAt = fromUnix(updatedAt)
	return nil
}

func (s *store) DeleteReview(ctx context.Context, postID int, reviewerID int) error {
	query, args, _ := lite.
		Delete("reviews").
		Where(sq.Eq{"post_id": postID, "reviewer_id": reviewerID}).
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
		return fmt.Errorf("%w: no review of user %d on post %d", models.ErrNotFound, reviewerID, postID)
	}
	return nil
}

func (s *store) SaveReviewCredit(ctx context.Context, credit models.ReviewCredit) error {
	query, args, _ := lite.
		Insert("review_credits").
		Columns("post_id", "reviewer_id", "matched", "bonus_paid").
		Values(credit.PostID, credit.ReviewerID, credit.Matched, credit.BonusPaid).
		Suffix(`ON CONFLICT(post_id, reviewer_id) DO UPDATE SET
			matched = excluded.matched,
			bonus_paid = excluded.bonus_paid`).
		ToSql()

	_, err := s.db.ExecContext(ctx, query, args...)
	return mapErr(err)
}
