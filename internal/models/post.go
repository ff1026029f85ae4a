package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	LimitMaxSources    = 10
	LimitMaxContentLen = 5000 // 5K
)

type Post struct {
	ID           int
	AuthorID     int
	Content      string
	SourceURLs   []string `db:"source_urls"`
	CreatedAt    time.Time
	ConsensusTag Verdict
	Confidence   int
	ReviewCount  int
	// Bookkeeping for the consensus write path.
	Version      int
	StableRounds int
	FinalizedTag Verdict
}

// Consensus is the public view of a post credibility.
type Consensus struct {
	PostID      int     `json:"postId"`
	Tag         Verdict `json:"tag"`
	Confidence  int     `json:"confidence"`
	ReviewCount int     `json:"reviewCount"`
}

func (p *Post) Consensus() Consensus {
	return Consensus{
		PostID:      p.ID,
		Tag:         p.ConsensusTag,
		Confidence:  p.Confidence,
		ReviewCount: p.ReviewCount,
	}
}

type PostReq struct {
	Content    string
	SourceURLs []string
}

// Validate trims the request and rejects empty content and malformed sources.
func (req *PostReq) Validate() error {
	req.Content = strings.TrimSpace(req.Content)
	clen := len(req.Content)
	if clen == 0 || clen > LimitMaxContentLen {
		return fmt.Errorf("%w: content must be between 1 and %d bytes", ErrInvalidInput, LimitMaxContentLen)
	}
	if len(req.SourceURLs) > LimitMaxSources {
		return fmt.Errorf("%w: at most %d sources", ErrInvalidInput, LimitMaxSources)
	}
	for i, s := range req.SourceURLs {
		u, err := url.Parse(strings.TrimSpace(s))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: invalid source url %q", ErrInvalidInput, s)
		}
		req.SourceURLs[i] = u.String()
	}
	return nil
}
