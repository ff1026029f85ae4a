package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahihnews/sahihnews/internal/consensus"
	"github.com/sahihnews/sahihnews/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

func (e *Engine) CreatePost(ctx context.Context, authorID int, req models.PostReq) (post *models.Post, err error) {
	ctx, span := e.startSpan(ctx, "CreatePost", attribute.Int("user.id", authorID))
	defer func() { endSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	author, err := readActor(ctx, e.store, authorID)
	if err != nil {
		return nil, err
	}
	if err := author.Perms().Require(models.PermCreatePost); err != nil {
		return nil, err
	}
	post = &models.Post{
		AuthorID:   authorID,
		Content:    req.Content,
		SourceURLs: req.SourceURLs,
	}
	if err := e.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	e.log.Info().Int("post", post.ID).Int("author", authorID).Msg("post created")
	return post, nil
}

func (e *Engine) GetConsensus(ctx context.Context, postID int) (c models.Consensus, err error) {
	ctx, span := e.startSpan(ctx, "GetConsensus", attribute.Int("post.id", postID))
	defer func() { endSpan(span, err) }()

	post, err := e.store.ReadPost(ctx, postID)
	if err != nil {
		return c, err
	}
	return post.Consensus(), nil
}

// SubmitReview records or replaces the review of reviewerID on postID, with
// the weight the reviewer has right now, and returns the new consensus.
// Authors cannot review their own posts.
func (e *Engine) SubmitReview(ctx context.Context, postID, reviewerID int, verdict models.Verdict, comment string) (c models.Consensus, err error) {
	ctx, span := e.startSpan(ctx, "SubmitReview",
		attribute.Int("post.id", postID),
		attribute.Int("user.id", reviewerID),
		attribute.String("verdict", string(verdict)))
	defer func() { endSpan(span, err) }()

	if !verdict.Valid() {
		return c, fmt.Errorf("%w: unknown verdict %q", models.ErrInvalidInput, verdict)
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > models.LimitMaxCommentLen {
		return c, fmt.Errorf("%w: comment longer than %d bytes", models.ErrInvalidInput, models.LimitMaxCommentLen)
	}

	return e.mutatePost(ctx, "SubmitReview", postID, func(ctx context.Context, tx models.StoreTx, post *models.Post) error {
		if post.AuthorID == reviewerID {
			return fmt.Errorf("%w: user %d is the author of post %d", models.ErrPermDenied, reviewerID, post.ID)
		}
		reviewer, err := readActor(ctx, tx, reviewerID)
		if err != nil {
			return err
		}
		if reviewer.Suspended {
			return fmt.Errorf("%w: reviewer %d is suspended", models.ErrUnauthorized, reviewerID)
		}
		if err := reviewer.Perms().Require(models.PermCreateReview); err != nil {
			return err
		}
		return tx.UpsertReview(ctx, &models.Review{
			PostID:     post.ID,
			ReviewerID: reviewerID,
			Verdict:    verdict,
			Weight:       consensus.ResolveWeight(*reviewer, e.policy),
			Comment:      comment,
			SinceVersion: post.Version,
		})
	})
}

// WithdrawReview deletes the review of reviewerID. The credit ledger entry of
// the reviewer on the post is kept, so resubmitting never earns it again.
func (e *Engine) WithdrawReview(ctx context.Context, postID, reviewerID int) (c models.Consensus, err error) {
	ctx, span := e.startSpan(ctx, "WithdrawReview",
		attribute.Int("post.id", postID),
		attribute.Int("user.id", reviewerID))
	defer func() { endSpan(span, err) }()

	return e.mutatePost(ctx, "WithdrawReview", postID, func(ctx context.Context, tx models.StoreTx, post *models.Post) error {
		return tx.DeleteReview(ctx, post.ID, reviewerID)
	})
}

// ToggleReaction adds the reaction, removes it when the same type is already
// active, or replaces the opposite type. added reports whether a reaction is
// active afterwards.
func (e *Engine) ToggleReaction(ctx context.Context, postID, userID int, typ models.ReactionType) (added bool, err error) {
	ctx, span := e.startSpan(ctx, "ToggleReaction",
		attribute.Int("post.id", postID),
		attribute.Int("user.id", userID),
		attribute.String("reaction", string(typ)))
	defer func() { endSpan(span, err) }()

	typ, err = models.ParseReactionType(string(typ))
	if err != nil {
		return false, err
	}

	_, err = e.mutatePost(ctx, "ToggleReaction", postID, func(ctx context.Context, tx models.StoreTx, post *models.Post) error {
		user, err := readActor(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := user.Perms().Require(models.PermCreateReaction); err != nil {
			return err
		}

		current, err := tx.ReadReaction(ctx, post.ID, userID)
		switch {
		case errors.Is(err, models.ErrNotFound):
		case err != nil:
			return err
		case current.Type == typ:
			added = false
			return tx.DeleteReaction(ctx, post.ID, userID)
		}
		added = true
		return tx.SetReaction(ctx, &models.Reaction{PostID: post.ID, UserID: userID, Type: typ})
	})
	return added, err
}

// RecomputeConsensus re-runs the aggregation of a post. A missing post is
// logged and ignored.
func (e *Engine) RecomputeConsensus(ctx context.Context, postID int) (c models.Consensus, err error) {
	ctx, span := e.startSpan(ctx, "RecomputeConsensus", attribute.Int("post.id", postID))
	defer func() { endSpan(span, err) }()

	c, err = e.mutatePost(ctx, "RecomputeConsensus", postID, func(context.Context, models.StoreTx, *models.Post) error {
		return nil
	})
	if errors.Is(err, models.ErrNotFound) {
		e.log.Info().Int("post", postID).Msg("recompute skipped, post not found")
		return models.Consensus{PostID: postID, Tag: models.VerdictUnverified}, nil
	}
	return c, err
}

// mutatePost applies mutate and recomputes the consensus of the post in one
// transaction. The whole cycle is retried when the post version moved.
func (e *Engine) mutatePost(
	ctx context.Context,
	op string,
	postID int,
	mutate func(ctx context.Context, tx models.StoreTx, post *models.Post) error,
) (models.Consensus, error) {
	var c models.Consensus
	err := e.withRetry(ctx, op, func(ctx context.Context) error {
		return e.store.WithTx(ctx, func(ctx context.Context, tx models.StoreTx) error {
			post, err := tx.ReadPost(ctx, postID)
			if err != nil {
				return err
			}
			if err := mutate(ctx, tx, post); err != nil {
				return err
			}
			c, err = e.recompute(ctx, tx, post)
			return err
		})
	})
	return c, err
}

func (e *Engine) recompute(ctx context.Context, tx models.StoreTx, post *models.Post) (models.Consensus, error) {
	reviews, err := tx.ListReviews(ctx, post.ID)
	if err != nil {
		return models.Consensus{}, err
	}
	tally, err := tx.CountReactions(ctx, post.ID)
	if err != nil {
		return models.Consensus{}, err
	}
	res := consensus.Aggregate(reviews, tally, e.policy)

	oldTag := post.ConsensusTag
	post.StableRounds = consensus.NextStableRounds(oldTag, res.Tag, post.StableRounds)
	post.ConsensusTag = res.Tag
	post.Confidence = res.Confidence
	post.ReviewCount = len(reviews)
	finalize := consensus.ShouldFinalize(*post, e.policy)
	if finalize {
		post.FinalizedTag = res.Tag
	}
	if err := tx.UpdatePostConsensus(ctx, post); err != nil {
		return models.Consensus{}, err
	}

	if oldTag != res.Tag {
		e.log.Info().
			Int("post", post.ID).
			Str("from", string(oldTag)).
			Str("to", string(res.Tag)).
			Int("confidence", res.Confidence).
			Msg("consensus changed")
		delta := consensus.AuthorDelta(oldTag, res.Tag, e.policy)
		if err := e.applyDelta(ctx, tx, post.AuthorID, models.UserDelta{Credibility: delta}); err != nil {
			return models.Consensus{}, err
		}
		err := e.notify(ctx, tx, post.AuthorID, models.NotifTypeConsensusChanged,
			"Your post was reviewed",
			fmt.Sprintf("The community now rates your post as %s (%d%% confidence).", res.Tag, res.Confidence),
			fmt.Sprintf("/api/posts/%d/consensus", post.ID))
		if err != nil {
			return models.Consensus{}, err
		}
	}

	if finalize {
		if err := e.finalize(ctx, tx, post, reviews); err != nil {
			return models.Consensus{}, err
		}
	}
	return post.Consensus(), nil
}

// finalize judges every settled review against the finalized tag and records
// the outcome in the credit ledger. reviews come ordered by reviewer id, so
// user rows are always locked in the same order.
func (e *Engine) finalize(ctx context.Context, tx models.StoreTx, post *models.Post, reviews []models.Review) error {
	for _, r := range reviews {
		if !consensus.ReviewSettled(r, *post, e.policy) {
			continue
		}
		delta, credit, changed := consensus.CreditReview(r, post.FinalizedTag, e.policy)
		if !changed {
			continue
		}
		if err := tx.SaveReviewCredit(ctx, credit); err != nil {
			return err
		}
		if err := e.applyDelta(ctx, tx, r.ReviewerID, delta); err != nil {
			return err
		}
		e.log.Debug().
			Int("post", post.ID).
			Int("reviewer", r.ReviewerID).
			Bool("match", credit.Matched).
			Msg("review credited")
	}
	return nil
}
