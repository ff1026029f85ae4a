package consensus

import (
	"math"

	"github.com/sahihnews/sahihnews/internal/models"
)

// ResolveWeight returns the voting weight of a reviewer: the base weight of
// the level scaled by credibility/100, rounded to the nearest integer and
// never below 1. Suspended reviewers always weigh 1.
func ResolveWeight(u models.User, p Policy) int {
	if u.Suspended {
		return 1
	}
	base, ok := p.LevelWeights[u.ReviewerLevel]
	if !ok || base < 1 {
		base = 1
	}
	score := models.ClampCredibility(u.CredibilityScore)
	w := int(math.Round(float64(base) * float64(score) / 100))
	if w < 1 {
		return 1
	}
	return w
}
