package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/sahihnews/sahihnews/internal/models"
)

var selectPost = psql.
	Select(
		"id",
		"author_id",
		"content",
		"source_urls",
		"created_at",
		"consensus_tag",
		"confidence",
		"review_count",
		"version",
		"stable_rounds",
		"finalized_tag",
	).
	From("posts")

func (s *store) CreatePost(ctx context.Context, post *models.Post) error {
	if post.SourceURLs == nil {
		post.SourceURLs = []string{}
	}
	post.ConsensusTag = models.VerdictUnverified
	sql, args, _ := psql.
		Insert("posts").
		Columns("author_id", "content", "source_urls", "consensus_tag").
		Values(post.AuthorID, post.Content, post.SourceURLs, post.ConsensusTag).
		Suffix("RETURNING id, created_at").
		ToSql()

	err := s.db.QueryRow(ctx, sql, args...).Scan(&post.ID, &post.CreatedAt)
	return mapErr(err)
}

func (s *store) ReadPost(ctx context.Context, postID int) (*models.Post, error) {
	sql, args, _ := selectPost.Where(sq.Eq{"id": postID}).ToSql()

	var post models.Post
	err := pgxscan.Get(ctx, s.db, &post, sql, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	return &post, nil
}

func (s *store) UpdatePostConsensus(ctx context.Context, post *models.Post) error {
	sql, args, _ := psql.
		Update("posts").
		Set("consensus_tag", post.ConsensusTag).
		Set("confidence", post.Confidence).
		Set("review_count", post.ReviewCount).
		Set("stable_rounds", post.StableRounds).
		Set("finalized_tag", post.FinalizedTag).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": post.ID, "version": post.Version}).
		ToSql()

	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: post %d is no longer at version %d", models.ErrConflict, post.ID, post.Version)
	}
	post.Version++
	return nil
}

func (s *store) CountUserPosts(ctx context.Context, userID int) (int, error) {
	sql, args, _ := psql.
		Select("COUNT(*)").
		From("posts").
		Where(sq.Eq{"author_id": userID}).
		ToSql()

	c := 0
	err := s.db.QueryRow(ctx, sql, args...).Scan(&c)
	return c, mapErr(err)
}
