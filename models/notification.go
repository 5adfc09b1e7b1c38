package models

import "time"

// Notification is a push message composed in the panel and delivered over FCM.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Body      string     `gorm:"type:text;not null" json:"body"`
	ImageURL  string     `gorm:"size:1024" json:"image_url"`
	SentAt    *time.Time `json:"sent_at"`
	SentCount int        `gorm:"default:0" json:"sent_count"`
	FailCount int        `gorm:"default:0" json:"fail_count"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
