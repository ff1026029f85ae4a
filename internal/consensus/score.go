package consensus

import "github.com/sahihnews/sahihnews/internal/models"

// AuthorDelta is the credibility change of a post author when the consensus
// tag of the post moves from oldTag to newTag. Leaving a penalized tag for
// true or unverified gives back half of the penalty on top of the new delta.
func AuthorDelta(oldTag, newTag models.Verdict, p Policy) int {
	if oldTag == newTag {
		return 0
	}
	delta := p.AuthorDeltas.For(newTag)
	penalty := p.AuthorDeltas.For(oldTag)
	if penalty < 0 && (newTag == models.VerdictTrue || newTag == models.VerdictUnverified) {
		delta += -penalty / 2
	}
	return delta
}

// NextStableRounds counts consecutive recomputations that produced the same tag.
func NextStableRounds(oldTag, newTag models.Verdict, rounds int) int {
	if oldTag == newTag {
		return rounds + 1
	}
	return 1
}

// ShouldFinalize reports whether reviewers of the post are due to be judged
// against its current tag.
func ShouldFinalize(post models.Post, p Policy) bool {
	return post.ReviewCount > 0 && post.StableRounds >= p.FinalizeAfter
}

// ReviewSettled reports whether the verdict of r has been in place for
// FinalizeAfter recomputations of post.
func ReviewSettled(r models.Review, post models.Post, p Policy) bool {
	return post.Version-r.SinceVersion >= p.FinalizeAfter
}

// CreditReview judges r against tag. It returns the delta for the reviewer,
// the ledger entry to store and whether anything changed. The first judgment
// counts the review. Later ones only move the match counter, and the
// credibility bonus is paid at most once per post. A mismatch never costs
// credibility.
func CreditReview(r models.Review, tag models.Verdict, p Policy) (models.UserDelta, models.ReviewCredit, bool) {
	match := r.Verdict == tag
	credit := models.ReviewCredit{
		PostID:     r.PostID,
		ReviewerID: r.ReviewerID,
		Matched:    match,
		BonusPaid:  r.BonusPaid,
	}
	var d models.UserDelta
	switch {
	case r.CreditedMatch == nil:
		d = models.UserDelta{Reviews: 1, LevelReviews: 1}
	case *r.CreditedMatch == match:
		return d, credit, false
	}
	if !match {
		if r.CreditedMatch != nil {
			d.Matches = -1
		}
		return d, credit, true
	}
	d.Matches++
	if !credit.BonusPaid {
		d.Credibility = p.ReviewMatchBonus
		credit.BonusPaid = true
	}
	return d, credit, true
}
