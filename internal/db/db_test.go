package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/sahihnews/sahihnews/internal/models"
	"github.com/stretchr/testify/require"
)

// These tests need a disposable Postgres database; they are skipped unless
// SAHIHNEWS_TEST_DATABASE_URL points to one. Every run drops its content.
var testDB *SharedDB

func TestMain(m *testing.M) {
	dbURL := os.Getenv("SAHIHNEWS_TEST_DATABASE_URL")
	if dbURL == "" {
		os.Exit(m.Run())
	}
	err := os.Chdir("./../..")
	if err != nil {
		panic(err)
	}
	const migrations = "file://migrations"
	// Reset database before testing
	err = Drop(migrations, dbURL)
	if err != nil {
		panic(err)
	}
	err = MigrateUp(migrations, dbURL)
	if err != nil {
		panic(err)
	}
	testDB, err = Connect(context.Background(), &models.EnvConfig{DatabaseURL: dbURL})
	if err != nil {
		panic(err)
	}
	code := m.Run()
	testDB.Close()
	os.Exit(code)
}

func requireDB(t *testing.T) *SharedDB {
	if testDB == nil {
		t.Skip("SAHIHNEWS_TEST_DATABASE_URL not set")
	}
	return testDB
}

var nextUserID = 1000

func mockUser() *models.User {
	nextUserID++
	return &models.User{
		ID:               nextUserID,
		Username:         "pippo",
		DisplayName:      "Pippo",
		CredibilityScore: models.DefaultCredibility,
	}
}

func mockPost(t *testing.T, sdb *SharedDB, authorID int) *models.Post {
	post := &models.Post{
		AuthorID:   authorID,
		Content:    "The river flooded the old bridge this morning",
		SourceURLs: []string{"https://example.com/news/1"},
	}
	require.Nil(t, sdb.CreatePost(context.Background(), post))
	return post
}

func TestUser(t *testing.T) {
	sdb := requireDB(t)
	require := require.New(t)
	ctx := context.Background()

	user := mockUser()
	require.Nil(sdb.CreateUser(ctx, user))
	dup := *user
	err := sdb.CreateUser(ctx, &dup)
	require.True(errors.Is(err, models.ErrConflict), "%v", err)

	read, err := sdb.ReadUser(ctx, user.ID)
	require.Nil(err)
	require.Equal(models.LevelNone, read.ReviewerLevel)
	require.Equal(models.DefaultCredibility, read.CredibilityScore)

	_, err = sdb.ReadUser(ctx, -1)
	require.True(errors.Is(err, models.ErrNotFound))

	require.Nil(sdb.ApplyUserDelta(ctx, user.ID, models.UserDelta{Credibility: 80, Reviews: 1, Matches: 1, LevelReviews: 1}))
	read, _ = sdb.ReadUser(ctx, user.ID)
	require.Equal(models.MaxCredibility, read.CredibilityScore)
	require.Equal(1, read.ReviewCount)
	require.Equal(1, read.LevelReviewCount)

	err = sdb.ApplyUserDelta(ctx, -1, models.UserDelta{Credibility: 1})
	require.True(errors.Is(err, models.ErrNotFound))
}

func TestPostConsensusVersion(t *testing.T) {
	sdb := requireDB(t)
	require := require.New(t)
	ctx := context.Background()

	user := mockUser()
	require.Nil(sdb.CreateUser(ctx, user))
	post := mockPost(t, sdb, user.ID)

	stale, err := sdb.ReadPost(ctx, post.ID)
	require.Nil(err)
	fresh, _ := sdb.ReadPost(ctx, post.ID)
	require.Equal([]string{"https://example.com/news/1"}, fresh.SourceURLs)

	fresh.ConsensusTag = models.VerdictFalse
	fresh.Confidence = 67
	require.Nil(sdb.UpdatePostConsensus(ctx, fresh))

	err = sdb.UpdatePostConsensus(ctx, stale)
	require.True(errors.Is(err, models.ErrConflict))
}

func TestReviewsAndReactions(t *testing.T) {
	sdb := requireDB(t)
	require := require.New(t)
	ctx := context.Background()

	author, reviewer := mockUser(), mockUser()
	require.Nil(sdb.CreateUser(ctx, author))
	require.Nil(sdb.CreateUser(ctx, reviewer))
	post := mockPost(t, sdb, author.ID)

	err := sdb.WithTx(ctx, func(ctx context.Context, tx models.StoreTx) error {
		r := &models.Review{PostID: post.ID, ReviewerID: reviewer.ID, Verdict: models.VerdictTrue, Weight: 1}
		if err := tx.UpsertReview(ctx, r); err != nil {
			return err
		}
		r.Verdict = models.VerdictFalse
		r.Weight = 2
		if err := tx.UpsertReview(ctx, r); err != nil {
			return err
		}
		return tx.SetReaction(ctx, &models.Reaction{PostID: post.ID, UserID: reviewer.ID, Type: models.ReactionInaccurate})
	})
	require.Nil(err)

	reviews, err := sdb.ListReviews(ctx, post.ID)
	require.Nil(err)
	require.Len(reviews, 1)
	require.Equal(models.VerdictFalse, reviews[0].Verdict)
	require.Equal(2, reviews[0].Weight)

	tally, err := sdb.CountReactions(ctx, post.ID)
	require.Nil(err)
	require.Equal(models.ReactionTally{Inaccurate: 1}, tally)

	require.Nil(reviews[0].CreditedMatch)

	credit := models.ReviewCredit{PostID: post.ID, ReviewerID: reviewer.ID, Matched: true, BonusPaid: true}
	require.Nil(sdb.SaveReviewCredit(ctx, credit))
	require.Nil(sdb.DeleteReview(ctx, post.ID, reviewer.ID))
	require.Nil(sdb.UpsertReview(ctx, &models.Review{PostID: post.ID, ReviewerID: reviewer.ID, Verdict: models.VerdictTrue, Weight: 1, SinceVersion: 3}))
	reviews, err = sdb.ListReviews(ctx, post.ID)
	require.Nil(err)
	require.Equal(3, reviews[0].SinceVersion)
	require.NotNil(reviews[0].CreditedMatch)
	require.True(*reviews[0].CreditedMatch)
	require.True(reviews[0].BonusPaid)

	require.Nil(sdb.DeleteReview(ctx, post.ID, reviewer.ID))
	require.Nil(sdb.DeleteReaction(ctx, post.ID, reviewer.ID))
	tally, _ = sdb.CountReactions(ctx, post.ID)
	require.Equal(models.ReactionTally{}, tally)
}

func TestApplications(t *testing.T) {
	sdb := requireDB(t)
	require := require.New(t)
	ctx := context.Background()

	user := mockUser()
	require.Nil(sdb.CreateUser(ctx, user))

	app := &models.LevelApplication{UserID: user.ID, FromLevel: models.LevelNone, ToLevel: models.LevelL1}
	require.Nil(sdb.CreateApplication(ctx, app))
	err := sdb.CreateApplication(ctx, &models.LevelApplication{UserID: user.ID, FromLevel: models.LevelNone, ToLevel: models.LevelL1})
	require.True(errors.Is(err, models.ErrConflict))

	pending, err := sdb.ReadPendingApplication(ctx, user.ID)
	require.Nil(err)
	pending.Status = models.ApplicationRejected
	require.Nil(sdb.ResolveApplication(ctx, pending))
	require.True(errors.Is(sdb.ResolveApplication(ctx, pending), models.ErrConflict))
}
