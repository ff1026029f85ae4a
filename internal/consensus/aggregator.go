package consensus

import (
	"math"

	"github.com/sahihnews/sahihnews/internal/models"
)

type Result struct {
	Tag         models.Verdict
	Confidence  int
	Scores      map[models.Verdict]int
	TotalWeight int
	// Nudge is the reaction adjustment already included in Confidence.
	Nudge int
}

// Aggregate computes the consensus of a post from its current reviews and
// reaction tally. The result depends only on its inputs.
func Aggregate(reviews []models.Review, tally models.ReactionTally, p Policy) Result {
	res := Result{
		Tag:    models.VerdictUnverified,
		Scores: map[models.Verdict]int{},
	}
	for _, r := range reviews {
		if !r.Verdict.Valid() {
			continue
		}
		w := r.Weight
		if w < 1 {
			w = 1
		}
		res.Scores[r.Verdict] += w
		res.TotalWeight += w
	}
	if res.TotalWeight == 0 {
		return res
	}

	best := -1
	for _, v := range p.TieBreak {
		if s := res.Scores[v]; s > best {
			best = s
			res.Tag = v
		}
	}

	confidence := int(math.Round(float64(100*best) / float64(res.TotalWeight)))
	res.Nudge = reactionNudge(res.Tag, tally, p)
	res.Confidence = clampPercent(confidence + res.Nudge)
	return res
}

// reactionNudge moves confidence up when reactions clearly side with the tag
// and down when they clearly side against it. "accurate" reactions side with
// a true tag, "inaccurate" ones with false or misleading.
func reactionNudge(tag models.Verdict, tally models.ReactionTally, p Policy) int {
	if tally.Accurate+tally.Inaccurate < p.MinReactions {
		return 0
	}
	var support, oppose int
	switch tag {
	case models.VerdictTrue:
		support, oppose = tally.Accurate, tally.Inaccurate
	case models.VerdictFalse, models.VerdictMisleading:
		support, oppose = tally.Inaccurate, tally.Accurate
	default:
		return 0
	}
	switch {
	case dominates(support, oppose, p.ReactionRatio):
		return p.ReactionNudge
	case dominates(oppose, support, p.ReactionRatio):
		return -p.ReactionNudge
	}
	return 0
}

func dominates(a, b int, ratio float64) bool {
	return a > 0 && float64(a) > ratio*float64(b)
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
