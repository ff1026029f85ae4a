package models

import "fmt"

type ReviewerLevel string

const (
	LevelNone ReviewerLevel = "none"
	LevelL1   ReviewerLevel = "L1"
	LevelL2   ReviewerLevel = "L2"
	LevelL3   ReviewerLevel = "L3"
)

// Levels is ordered from the lowest to the highest tier.
var Levels = []ReviewerLevel{LevelNone, LevelL1, LevelL2, LevelL3}

// Rank returns the position of the level in Levels, -1 if unknown.
func (l ReviewerLevel) Rank() int {
	for i, v := range Levels {
		if v == l {
			return i
		}
	}
	return -1
}

func (l ReviewerLevel) Valid() bool {
	return l.Rank() >= 0
}

// Next returns the level above l. ok is false for L3.
func (l ReviewerLevel) Next() (next ReviewerLevel, ok bool) {
	r := l.Rank()
	if r < 0 || r == len(Levels)-1 {
		return l, false
	}
	return Levels[r+1], true
}

// Prev returns the level below l. ok is false for none.
func (l ReviewerLevel) Prev() (prev ReviewerLevel, ok bool) {
	r := l.Rank()
	if r <= 0 {
		return l, false
	}
	return Levels[r-1], true
}

func ParseLevel(s string) (ReviewerLevel, error) {
	l := ReviewerLevel(s)
	if !l.Valid() {
		return "", fmt.Errorf("%w: unknown reviewer level %q", ErrInvalidInput, s)
	}
	return l, nil
}
