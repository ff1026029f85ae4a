package models

import (
	"fmt"
	"strings"
	"time"
)

type ReactionType string

const (
	ReactionAccurate   ReactionType = "accurate"
	ReactionInaccurate ReactionType = "inaccurate"
)

func ParseReactionType(s string) (ReactionType, error) {
	t := ReactionType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case ReactionAccurate, ReactionInaccurate:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown reaction type %q", ErrInvalidInput, s)
}

type Reaction struct {
	ID        int
	PostID    int
	UserID    int
	Type      ReactionType
	CreatedAt time.Time
}

// ReactionTally counts the active reactions on a post.
type ReactionTally struct {
	Accurate   int
	Inaccurate int
}
