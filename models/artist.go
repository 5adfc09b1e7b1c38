package models

import "time"

// Artist groups songs under a display name.
type Artist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Bio       string    `gorm:"type:text" json:"bio"`
	CoverURL  string    `gorm:"size:1024" json:"cover_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Songs     []Song    `json:"-"`
}
