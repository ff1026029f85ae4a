package consensus

import (
	"testing"

	"github.com/sahihnews/sahihnews/internal/models"
	"github.com/stretchr/testify/require"
)

func TestResolveWeight(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		name  string
		user  models.User
		wants int
	}{
		{"none full score", models.User{ReviewerLevel: models.LevelNone, CredibilityScore: 100}, 1},
		{"L1 full score", models.User{ReviewerLevel: models.LevelL1, CredibilityScore: 100}, 2},
		{"L3 full score", models.User{ReviewerLevel: models.LevelL3, CredibilityScore: 100}, 8},
		{"L3 half score", models.User{ReviewerLevel: models.LevelL3, CredibilityScore: 50}, 4},
		{"L2 rounds half up", models.User{ReviewerLevel: models.LevelL2, CredibilityScore: 63}, 3},
		{"zero score floors at one", models.User{ReviewerLevel: models.LevelL3, CredibilityScore: 0}, 1},
		{"score over range is clamped", models.User{ReviewerLevel: models.LevelL2, CredibilityScore: 250}, 4},
		{"suspended", models.User{ReviewerLevel: models.LevelL3, CredibilityScore: 100, Suspended: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wants, ResolveWeight(tt.user, p))
		})
	}
}

func TestResolveWeightMonotonic(t *testing.T) {
	require := require.New(t)
	p := DefaultPolicy()
	for _, l := range models.Levels {
		prev := 0
		for score := models.MinCredibility; score <= models.MaxCredibility; score++ {
			w := ResolveWeight(models.User{ReviewerLevel: l, CredibilityScore: score}, p)
			require.GreaterOrEqual(w, 1)
			require.GreaterOrEqual(w, prev, "level %s score %d", l, score)
			prev = w
		}
	}
	for score := models.MinCredibility; score <= models.MaxCredibility; score++ {
		prev := 0
		for _, l := range models.Levels {
			w := ResolveWeight(models.User{ReviewerLevel: l, CredibilityScore: score}, p)
			require.GreaterOrEqual(w, prev, "level %s score %d", l, score)
			prev = w
		}
	}
}
