package model

import "time"

const (
	SessionEventLogin          = "login"
	SessionEventLogout         = "logout"
	SessionEventExpired        = "expired"
	SessionEventAccountDeleted = "account_deleted"
)

type SessionEvent struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	SessionID string    `gorm:"size:64;not null;index" json:"session_id"`
	Kind      string    `gorm:"size:32;not null;index" json:"kind"`
	Subject   string    `gorm:"size:128" json:"subject,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
