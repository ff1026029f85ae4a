package litedb

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/sahihnews/sahihnews/internal/models"
)

func (s *store) CreatePost(ctx context.Context, post *models.Post) error {
	if post.SourceURLs == nil {
		post.SourceURLs = []string{}
	}
	sources, err := json.Marshal(post.SourceURLs)
	if err != nil {
		return fmt.Errorf("encode sources: %w", err)
	}
	post.ConsensusTag = models.VerdictUnverified
	post.CreatedAt = now()

	sql, args, _ := lite.
		Insert("posts").
		Columns("author_id", "content", "source_urls", "created_at", "consensus_tag").
		Values(post.AuthorID, post.Content, string(sources), post.CreatedAt.Unix(), string(post.ConsensusTag)).
		Suffix("RETURNING id").
		ToSql()

	err = s.db.QueryRowContext(ctx, sql, args...).Scan(&post.ID)
	return mapErr(err)
}

func (s *store) ReadPost(ctx context.Context, postID int) (*models.Post, error) {
	sql, args, _ := lite.
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
		From("posts").
		Where(sq.Eq{"id": postID}).
		ToSql()

	var (
		post      models.Post
		sources   string
		createdAt int64
		tag       string
		finalized string
	)
	err := s.db.QueryRowContext(ctx, sql, args...).Scan(
		&post.ID,
		&post.AuthorID,
		&post.Content,
		&sources,
		&createdAt,
		&tag,
		&post.Confidence,
		&post.ReviewCount,
		&post.Version,
		&post.StableRounds,
		&finalized,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := json.Unmarshal([]byte(sources), &post.SourceURLs); err != nil {
		return nil, fmt.Errorf("decode sources of post %d: %w", postID, err)
	}
	post.CreatedAt = fromUnix(createdAt)
	post.ConsensusTag = models.Verdict(tag)
	post.FinalizedTag = models.Verdict(finalized)
	return &post, nil
}

// UpdatePostConsensus uses optimistic locking: the update only succeeds if
// the stored version still matches post.Version.
func (s *store) UpdatePostConsensus(ctx context.Context, post *models.Post) error {
	sql, args, _ := lite.
		Update("posts").
		Set("consensus_tag", string(post.ConsensusTag)).
		Set("confidence", post.Confidence).
		Set("review_count", post.ReviewCount).
		Set("stable_rounds", post.StableRounds).
		Set("finalized_tag", string(post.FinalizedTag)).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": post.ID, "version": post.Version}).
		ToSql()

	res, err := s.db.ExecContext(ctx, sql, args...)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: post %d is no longer at version %d", models.ErrConflict, post.ID, post.Version)
	}
	post.Version++
	return nil
}

func (s *store) CountUserPosts(ctx context.Context, userID int) (int, error) {
	sql, args, _ := lite.
		Select("COUNT(*)").
		From("posts").
		Where(sq.Eq{"author_id": userID}).
		ToSql()

	c := 0
	err := s.db.QueryRowContext(ctx, sql, args...).Scan(&c)
	return c, mapErr(err)
}
