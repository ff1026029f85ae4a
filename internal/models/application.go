package models

import "time"

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// LevelApplication is a request to move one reviewer level up,
// waiting for a moderator decision.
type LevelApplication struct {
	ID         int               `json:"id"`
	UserID     int               `json:"userId"`
	FromLevel  ReviewerLevel     `json:"fromLevel"`
	ToLevel    ReviewerLevel     `json:"toLevel"`
	Status     ApplicationStatus `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
	ResolvedAt *time.Time        `json:"resolvedAt,omitempty"`
	ResolvedBy *int              `json:"resolvedBy,omitempty"`
}
