package consensus

import (
	"fmt"
	"time"

	"github.com/sahihnews/sahihnews/internal/models"
)

// Requirement names a precondition of a level transition.
type Requirement string

const (
	ReqCredibility   Requirement = "credibilityScore"
	ReqPostCount     Requirement = "postCount"
	ReqAccountAge    Requirement = "accountAgeMonths"
	ReqAccuracy      Requirement = "reviewAccuracy"
	ReqLevelReviews  Requirement = "levelReviewCount"
	ReqMonthsAtLevel Requirement = "monthsAtLevel"
	ReqNotSuspended  Requirement = "notSuspended"
	ReqNextLevel     Requirement = "nextLevel"
)

type Eligibility struct {
	Eligible bool                 `json:"eligible"`
	From     models.ReviewerLevel `json:"from"`
	To       models.ReviewerLevel `json:"to,omitempty"`
	Missing  []Requirement        `json:"missingRequirements"`
}

var ErrInvalidTransition = fmt.Errorf("%w: invalid reviewer level transition", models.ErrInvalidInput)

// CheckEligibility evaluates whether u may apply for the level right above
// its current one. Eligibility never promotes by itself.
func CheckEligibility(u models.User, postCount int, now time.Time, p Policy) Eligibility {
	e := Eligibility{From: u.ReviewerLevel, Missing: []Requirement{}}
	next, ok := u.ReviewerLevel.Next()
	if !ok {
		e.Missing = append(e.Missing, ReqNextLevel)
		return e
	}
	e.To = next
	if u.Suspended {
		e.Missing = append(e.Missing, ReqNotSuspended)
	}

	req := p.Requirements[next]
	checks := []struct {
		name Requirement
		ok   bool
	}{
		{ReqCredibility, u.CredibilityScore >= req.MinCredibility},
		{ReqPostCount, postCount >= req.MinPosts},
		{ReqAccountAge, u.AccountAgeMonths(now) >= req.MinAccountAgeMonths},
		{ReqAccuracy, u.ReviewAccuracy() >= req.MinAccuracy},
		{ReqLevelReviews, u.LevelReviewCount >= req.MinLevelReviews},
		{ReqMonthsAtLevel, u.MonthsAtLevel(now) >= req.MinMonthsAtLevel},
	}
	for _, c := range checks {
		if !c.ok {
			e.Missing = append(e.Missing, c.name)
		}
	}
	e.Eligible = len(e.Missing) == 0
	return e
}

// Promote returns the level reached when an application of u is approved.
func Promote(u models.User, postCount int, now time.Time, p Policy) (models.ReviewerLevel, error) {
	e := CheckEligibility(u, postCount, now, p)
	if !e.Eligible {
		return u.ReviewerLevel, fmt.Errorf("%w: %s -> %s missing %v", ErrInvalidTransition, e.From, e.To, e.Missing)
	}
	return e.To, nil
}

// Demote returns the level below the current one. Only explicit
// administrative events call it.
func Demote(u models.User) (models.ReviewerLevel, error) {
	prev, ok := u.ReviewerLevel.Prev()
	if !ok {
		return u.ReviewerLevel, fmt.Errorf("%w: %s has no lower level", ErrInvalidTransition, u.ReviewerLevel)
	}
	return prev, nil
}
