package models

import (
	"context"
	"time"
)

// StoreTx is the persistence surface used by the consensus engine.
// Reads of missing rows return ErrNotFound.
type StoreTx interface {
	CreatePost(ctx context.Context, post *Post) error
	ReadPost(ctx context.Context, postID int) (*Post, error)
	// UpdatePostConsensus writes the consensus columns only if the stored
	// version still equals post.Version; otherwise it returns ErrConflict.
	// On success post.Version is incremented.
	UpdatePostConsensus(ctx context.Context, post *Post) error
	CountUserPosts(ctx context.Context, userID int) (int, error)

	ListReviews(ctx context.Context, postID int) ([]Review, error)
	// UpsertReview inserts the review or replaces verdict, weight and comment
	// of the existing (post, reviewer) row. SinceVersion only moves when the
	// verdict changes. review.ID and review.SinceVersion are filled in.
	UpsertReview(ctx context.Context, review *Review) error
	DeleteReview(ctx context.Context, postID int, reviewerID int) error
	// SaveReviewCredit upserts the credit of a reviewer on a post. Deleting
	// the review leaves it in place.
	SaveReviewCredit(ctx context.Context, credit ReviewCredit) error

	ReadReaction(ctx context.Context, postID int, userID int) (*Reaction, error)
	// SetReaction inserts or replaces the reaction of the (post, user) pair.
	SetReaction(ctx context.Context, reaction *Reaction) error
	DeleteReaction(ctx context.Context, postID int, userID int) error
	CountReactions(ctx context.Context, postID int) (ReactionTally, error)

	// CreateUser returns ErrConflict if the id is already taken.
	CreateUser(ctx context.Context, user *User) error
	ReadUser(ctx context.Context, userID int) (*User, error)
	UpdateProfile(ctx context.Context, identity Identity) error
	// ApplyUserDelta increments the counters of a user in a single statement,
	// clamping the credibility score.
	ApplyUserDelta(ctx context.Context, userID int, delta UserDelta) error
	// SetReviewerLevel also resets the per-level review counter.
	SetReviewerLevel(ctx context.Context, userID int, level ReviewerLevel, since time.Time) error
	SetSuspended(ctx context.Context, userID int, suspended bool) error

	CreateApplication(ctx context.Context, app *LevelApplication) error
	ReadApplication(ctx context.Context, appID int) (*LevelApplication, error)
	ReadPendingApplication(ctx context.Context, userID int) (*LevelApplication, error)
	ResolveApplication(ctx context.Context, app *LevelApplication) error

	SendNotification(ctx context.Context, notif *Notification) error
	ListNotifications(ctx context.Context, userID int) ([]NotifView, error)
}

type Store interface {
	StoreTx
	// WithTx runs fn inside a single transaction. Returning an error from fn
	// rolls every write back.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx StoreTx) error) error
}
