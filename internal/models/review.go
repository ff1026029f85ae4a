package models

import (
	"fmt"
	"strings"
	"time"
)

// Verdict is both the opinion carried by a review and the consensus tag of a post.
type Verdict string

const (
	VerdictTrue       Verdict = "true"
	VerdictFalse      Verdict = "false"
	VerdictMisleading Verdict = "misleading"
	VerdictUnverified Verdict = "unverified"
)

// Verdicts lists every verdict, most cautionary first.
var Verdicts = []Verdict{
	VerdictFalse,
	VerdictMisleading,
	VerdictTrue,
	VerdictUnverified,
}

func (v Verdict) Valid() bool {
	switch v {
	case VerdictTrue, VerdictFalse, VerdictMisleading, VerdictUnverified:
		return true
	}
	return false
}

func ParseVerdict(s string) (Verdict, error) {
	v := Verdict(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("%w: unknown verdict %q", ErrInvalidInput, s)
	}
	return v, nil
}

const LimitMaxCommentLen = 2000

type Review struct {
	ID         int
	PostID     int
	ReviewerID int
	Verdict    Verdict
	// Weight is the reviewer weight resolved when the review was cast.
	Weight    int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
	// SinceVersion is the post version the verdict was cast at. Resubmitting
	// the same verdict keeps it.
	SinceVersion int

	// Credit state of the reviewer on this post. It outlives the review row,
	// so a withdrawn and resubmitted review is never counted twice.
	CreditedMatch *bool
	BonusPaid     bool
}

// ReviewCredit is the ledger entry of a reviewer on a post.
type ReviewCredit struct {
	PostID     int
	ReviewerID int
	Matched    bool
	BonusPaid  bool
}
