package consensus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sahihnews/sahihnews/internal/models"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.Nil(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPolicyDefaults(t *testing.T) {
	require := require.New(t)
	p, err := LoadPolicy("")
	require.Nil(err)
	require.Equal(DefaultPolicy(), p)
	require.Nil(p.Validate())
}

func TestLoadPolicyOverrides(t *testing.T) {
	require := require.New(t)
	path := writePolicy(t, `
levelWeights:
  L3: 16
reactionNudge: 10
finalizeAfter: 5
authorDeltas:
  "true": 3
  "misleading": -2
  "false": -6
requirements:
  L1:
    minCredibility: 60
    minPosts: 10
`)
	p, err := LoadPolicy(path)
	require.Nil(err)
	require.Equal(16, p.LevelWeights[models.LevelL3])
	require.Equal(4, p.LevelWeights[models.LevelL2])
	require.Equal(10, p.ReactionNudge)
	require.Equal(5, p.FinalizeAfter)
	require.Equal(AuthorDeltas{True: 3, Misleading: -2, False: -6}, p.AuthorDeltas)
	require.Equal(Requirements{MinCredibility: 60, MinPosts: 10}, p.Requirements[models.LevelL1])
	require.Equal(DefaultPolicy().Requirements[models.LevelL2], p.Requirements[models.LevelL2])
	require.Equal(DefaultPolicy().MaxAttempts, p.MaxAttempts)
}

func TestLoadPolicyErrors(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NotNil(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))

	_, err = LoadPolicy(writePolicy(t, "levelWeights: [1, 2"))
	require.NotNil(t, err)

	tests := []struct {
		name    string
		content string
	}{
		{"decreasing weights", "levelWeights:\n  L2: 1\n"},
		{"zero weight", "levelWeights:\n  none: 0\n"},
		{"incomplete tie break", "tieBreak: [\"false\", \"true\"]\n"},
		{"duplicate tie break", "tieBreak: [\"false\", \"false\", \"true\", \"unverified\"]\n"},
		{"unknown verdict", "tieBreak: [\"false\", \"misleading\", \"true\", \"satire\"]\n"},
		{"ratio below one", "reactionRatio: 0.5\n"},
		{"no attempts", "maxAttempts: 0\n"},
		{"no finalize rounds", "finalizeAfter: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPolicy(writePolicy(t, tt.content))
			require.True(t, errors.Is(err, ErrInvalidPolicy), "got %v", err)
		})
	}
}
