// Package consensus holds the pure credibility rules: reviewer weights,
// weighted aggregation of reviews, credibility deltas and the reviewer
// leveling state machine. Nothing here touches storage.
package consensus

import (
	"errors"
	"fmt"
	"os"

	"github.com/sahihnews/sahihnews/internal/models"
	"gopkg.in/yaml.v3"
)

// Policy gathers every tunable constant of the engine.
type Policy struct {
	LevelWeights map[models.ReviewerLevel]int `yaml:"levelWeights"`
	// TieBreak orders verdicts from the one winning ties to the one losing them.
	TieBreak []models.Verdict `yaml:"tieBreak"`

	ReactionNudge int     `yaml:"reactionNudge"`
	ReactionRatio float64 `yaml:"reactionRatio"`
	MinReactions  int     `yaml:"minReactions"`

	AuthorDeltas     AuthorDeltas `yaml:"authorDeltas"`
	ReviewMatchBonus int          `yaml:"reviewMatchBonus"`

	// FinalizeAfter is the number of consecutive recomputations yielding the
	// same tag before reviewers are credited.
	FinalizeAfter int `yaml:"finalizeAfter"`
	// MaxAttempts bounds the optimistic read-recompute-write cycle.
	MaxAttempts int `yaml:"maxAttempts"`

	// Requirements are keyed by the level being applied for.
	Requirements map[models.ReviewerLevel]Requirements `yaml:"requirements"`
}

type AuthorDeltas struct {
	True       int `yaml:"true"`
	Misleading int `yaml:"misleading"`
	False      int `yaml:"false"`
}

func (d AuthorDeltas) For(tag models.Verdict) int {
	switch tag {
	case models.VerdictTrue:
		return d.True
	case models.VerdictMisleading:
		return d.Misleading
	case models.VerdictFalse:
		return d.False
	}
	return 0
}

// Requirements are minimums; a zero value never blocks.
type Requirements struct {
	MinCredibility      int `yaml:"minCredibility"`
	MinPosts            int `yaml:"minPosts"`
	MinAccountAgeMonths int `yaml:"minAccountAgeMonths"`
	MinAccuracy         int `yaml:"minAccuracy"`
	MinLevelReviews     int `yaml:"minLevelReviews"`
	MinMonthsAtLevel    int `yaml:"minMonthsAtLevel"`
}

func DefaultPolicy() Policy {
	return Policy{
		LevelWeights: map[models.ReviewerLevel]int{
			models.LevelNone: 1,
			models.LevelL1:   2,
			models.LevelL2:   4,
			models.LevelL3:   8,
		},
		TieBreak: []models.Verdict{
			models.VerdictFalse,
			models.VerdictMisleading,
			models.VerdictTrue,
			models.VerdictUnverified,
		},
		ReactionNudge: 5,
		ReactionRatio: 2,
		MinReactions:  1,
		AuthorDeltas: AuthorDeltas{
			True:       2,
			Misleading: -3,
			False:      -5,
		},
		ReviewMatchBonus: 1,
		FinalizeAfter:    3,
		MaxAttempts:      3,
		Requirements: map[models.ReviewerLevel]Requirements{
			models.LevelL1: {
				MinCredibility:      75,
				MinPosts:            25,
				MinAccountAgeMonths: 3,
				MinAccuracy:         80,
			},
			models.LevelL2: {
				MinCredibility:   85,
				MinLevelReviews:  100,
				MinAccuracy:      90,
				MinMonthsAtLevel: 6,
			},
			models.LevelL3: {
				MinCredibility:   95,
				MinLevelReviews:  500,
				MinAccuracy:      95,
				MinMonthsAtLevel: 12,
			},
		},
	}
}

var ErrInvalidPolicy = errors.New("invalid policy")

// LoadPolicy reads a YAML file over the defaults. An empty path returns the
// defaults. Requirement blocks present in the file replace the default block
// of that level as a whole.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func (p Policy) Validate() error {
	prev := 0
	for _, l := range models.Levels {
		w, ok := p.LevelWeights[l]
		if !ok || w < 1 {
			return fmt.Errorf("%w: weight for level %s must be >= 1", ErrInvalidPolicy, l)
		}
		if w < prev {
			return fmt.Errorf("%w: weight for level %s is lower than the level below", ErrInvalidPolicy, l)
		}
		prev = w
	}

	if len(p.TieBreak) != len(models.Verdicts) {
		return fmt.Errorf("%w: tieBreak must list every verdict once", ErrInvalidPolicy)
	}
	seen := map[models.Verdict]bool{}
	for _, v := range p.TieBreak {
		if !v.Valid() || seen[v] {
			return fmt.Errorf("%w: tieBreak must list every verdict once", ErrInvalidPolicy)
		}
		seen[v] = true
	}

	if p.ReactionNudge < 0 || p.ReactionNudge > models.MaxCredibility {
		return fmt.Errorf("%w: reactionNudge out of range", ErrInvalidPolicy)
	}
	if p.ReactionRatio < 1 {
		return fmt.Errorf("%w: reactionRatio must be >= 1", ErrInvalidPolicy)
	}
	if p.FinalizeAfter < 1 {
		return fmt.Errorf("%w: finalizeAfter must be >= 1", ErrInvalidPolicy)
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: maxAttempts must be >= 1", ErrInvalidPolicy)
	}
	for _, l := range models.Levels[1:] {
		if _, ok := p.Requirements[l]; !ok {
			return fmt.Errorf("%w: missing requirements for level %s", ErrInvalidPolicy, l)
		}
	}
	return nil
}
