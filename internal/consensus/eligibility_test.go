package consensus

import (
	"errors"
	"testing"
	"time"

	"github.com/sahihnews/sahihnews/internal/models"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func applicant() models.User {
	return models.User{
		ID:               1,
		CredibilityScore: 80,
		ReviewerLevel:    models.LevelNone,
		CreatedAt:        now.AddDate(0, -4, 0),
		LevelSince:       now.AddDate(0, -4, 0),
		Role:             models.RoleUser,
	}
}

func TestCheckEligibilityL1(t *testing.T) {
	require := require.New(t)
	p := DefaultPolicy()

	e := CheckEligibility(applicant(), 25, now, p)
	require.True(e.Eligible)
	require.Equal(models.LevelNone, e.From)
	require.Equal(models.LevelL1, e.To)
	require.Empty(e.Missing)
	require.NotNil(e.Missing)

	u := applicant()
	u.CredibilityScore = 74
	e = CheckEligibility(u, 25, now, p)
	require.False(e.Eligible)
	require.Equal([]Requirement{ReqCredibility}, e.Missing)

	u = applicant()
	u.CreatedAt = now.AddDate(0, -2, 0)
	u.ReviewCount = 10
	u.ReviewMatches = 7
	e = CheckEligibility(u, 3, now, p)
	require.Equal([]Requirement{ReqPostCount, ReqAccountAge, ReqAccuracy}, e.Missing)
}

func TestCheckEligibilityHigherLevels(t *testing.T) {
	require := require.New(t)
	p := DefaultPolicy()

	u := applicant()
	u.ReviewerLevel = models.LevelL1
	u.CredibilityScore = 90
	u.ReviewCount = 100
	u.ReviewMatches = 95
	u.LevelReviewCount = 100
	u.LevelSince = now.AddDate(0, -6, 0)
	e := CheckEligibility(u, 0, now, p)
	require.True(e.Eligible, "%v", e.Missing)
	require.Equal(models.LevelL2, e.To)

	u.LevelSince = now.AddDate(0, -6, 1)
	u.LevelReviewCount = 99
	e = CheckEligibility(u, 0, now, p)
	require.Equal([]Requirement{ReqLevelReviews, ReqMonthsAtLevel}, e.Missing)

	u.ReviewerLevel = models.LevelL3
	e = CheckEligibility(u, 0, now, p)
	require.False(e.Eligible)
	require.Equal([]Requirement{ReqNextLevel}, e.Missing)
}

func TestCheckEligibilitySuspended(t *testing.T) {
	require := require.New(t)
	u := applicant()
	u.Suspended = true
	e := CheckEligibility(u, 25, now, DefaultPolicy())
	require.False(e.Eligible)
	require.Equal([]Requirement{ReqNotSuspended}, e.Missing)
}

func TestPromote(t *testing.T) {
	require := require.New(t)
	p := DefaultPolicy()

	l, err := Promote(applicant(), 25, now, p)
	require.Nil(err)
	require.Equal(models.LevelL1, l)

	u := applicant()
	u.CredibilityScore = 10
	l, err = Promote(u, 25, now, p)
	require.True(errors.Is(err, ErrInvalidTransition))
	require.True(errors.Is(err, models.ErrInvalidInput))
	require.Equal(models.LevelNone, l)
}

func TestDemote(t *testing.T) {
	require := require.New(t)

	u := applicant()
	u.ReviewerLevel = models.LevelL2
	l, err := Demote(u)
	require.Nil(err)
	require.Equal(models.LevelL1, l)

	u.ReviewerLevel = models.LevelNone
	_, err = Demote(u)
	require.True(errors.Is(err, ErrInvalidTransition))
}
