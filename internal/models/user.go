package models

import (
	"math"
	"time"
)

const (
	MinCredibility     = 0
	MaxCredibility     = 100
	DefaultCredibility = 50
)

type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
)

type User struct {
	ID               int
	Username         string
	DisplayName      string
	Bio              string
	AvatarURL        string `db:"avatar_url"`
	CredibilityScore int
	ReviewerLevel    ReviewerLevel
	Suspended        bool
	ReviewCount      int
	ReviewMatches    int
	LevelReviewCount int
	LevelSince       time.Time
	Role             UserRole
	IsVerified       bool
	CreatedAt        time.Time
}

// ReviewAccuracy is the percentage of finalized reviews matching consensus.
// A user without finalized reviews is treated as fully accurate.
func (u *User) ReviewAccuracy() int {
	if u.ReviewCount <= 0 {
		return 100
	}
	return int(math.Round(float64(u.ReviewMatches) * 100 / float64(u.ReviewCount)))
}

func (u *User) AccountAgeMonths(now time.Time) int {
	return monthsBetween(u.CreatedAt, now)
}

func (u *User) MonthsAtLevel(now time.Time) int {
	return monthsBetween(u.LevelSince, now)
}

func (u *User) Perms() Perms {
	return PermsForRole(u.Role)
}

// monthsBetween counts whole calendar months elapsed from start to end.
func monthsBetween(start, end time.Time) int {
	if start.IsZero() || !end.After(start) {
		return 0
	}
	start, end = start.UTC(), end.UTC()
	months := (end.Year()-start.Year())*12 + int(end.Month()-start.Month())
	anniversary := start.AddDate(0, months, 0)
	if anniversary.After(end) {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// Identity is the profile supplied by the external identity provider.
type Identity struct {
	UserID      int
	Username    string
	DisplayName string
	AvatarURL   string
}

// UserView is the public credibility profile of a user.
type UserView struct {
	ID               int           `json:"id"`
	Username         string        `json:"username"`
	DisplayName      string        `json:"displayName"`
	AvatarURL        string        `json:"avatarUrl,omitempty"`
	CredibilityScore int           `json:"credibilityScore"`
	ReviewerLevel    ReviewerLevel `json:"reviewerLevel"`
	Suspended        bool          `json:"suspended"`
	ReviewCount      int           `json:"reviewCount"`
	ReviewAccuracy   int           `json:"reviewAccuracy"`
	AccountAgeMonths int           `json:"accountAgeMonths"`
	IsVerified       bool          `json:"isVerified"`
}

func (u *User) View(now time.Time) UserView {
	return UserView{
		ID:               u.ID,
		Username:         u.Username,
		DisplayName:      u.DisplayName,
		AvatarURL:        u.AvatarURL,
		CredibilityScore: u.CredibilityScore,
		ReviewerLevel:    u.ReviewerLevel,
		Suspended:        u.Suspended,
		ReviewCount:      u.ReviewCount,
		ReviewAccuracy:   u.ReviewAccuracy(),
		AccountAgeMonths: u.AccountAgeMonths(now),
		IsVerified:       u.IsVerified,
	}
}

// UserDelta is an increment applied atomically to a stored user.
// Credibility is clamped to [MinCredibility, MaxCredibility] by the store.
type UserDelta struct {
	Credibility  int
	Reviews      int
	Matches      int
	LevelReviews int
}

func (d UserDelta) IsZero() bool {
	return d == UserDelta{}
}

func (d UserDelta) Add(o UserDelta) UserDelta {
	return UserDelta{
		Credibility:  d.Credibility + o.Credibility,
		Reviews:      d.Reviews + o.Reviews,
		Matches:      d.Matches + o.Matches,
		LevelReviews: d.LevelReviews + o.LevelReviews,
	}
}

// ClampCredibility bounds a score to the valid range.
func ClampCredibility(score int) int {
	if score < MinCredibility {
		return MinCredibility
	}
	if score > MaxCredibility {
		return MaxCredibility
	}
	return score
}
