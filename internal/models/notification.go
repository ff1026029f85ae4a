package models

import (
	"net/url"
	"time"
)

type NotifType string

const (
	NotifTypeConsensusChanged    NotifType = "consensus_changed"
	NotifTypeLevelChanged        NotifType = "level_changed"
	NotifTypeApplicationResolved NotifType = "application_resolved"
	NotifTypeSuspended           NotifType = "suspended"
)

type Notification struct {
	UserID    int
	NotifType NotifType
	Title     string
	Text      string
	ActionURL url.URL `db:"action_url"`
}

type NotifView struct {
	ID        int       `json:"id"`
	NotifType NotifType `json:"notifType"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	ActionURL string    `json:"actionUrl" db:"action_url"`
	CreatedAt time.Time `json:"createdAt"`
}
