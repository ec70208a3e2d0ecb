package model

import "time"

// BrowserSession is the SQL row behind one browser's persisted session state.
type BrowserSession struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Token       string    `gorm:"type:text" json:"-"`
	ChatHandles string    `gorm:"type:text" json:"chat_handles"`
	Transient   string    `gorm:"type:text" json:"-"`
	ExpiresAt   time.Time `gorm:"index" json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (BrowserSession) TableName() string { return "browser_sessions" }
