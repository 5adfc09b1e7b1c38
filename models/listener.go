package models

import (
	"time"

	"gorm.io/gorm"
)

// Listener is an end user of the streaming app (not an admin account).
// FCMToken is the device registration used for push notifications.
type Listener struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ExternalID string         `gorm:"size:64;uniqueIndex;not null" json:"external_id"` // auth provider subject
	Email      string         `gorm:"size:255" json:"email"`
	Nickname   string         `gorm:"size:64" json:"nickname"`
	AvatarURL  string         `gorm:"size:1024" json:"avatar_url"`
	FCMToken   string         `gorm:"size:512" json:"-"`
	Banned     bool           `gorm:"default:false" json:"banned"`
	LastSeenAt *time.Time     `json:"last_seen_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
