package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Song represents a streamable track. Audio lives on Telegram; the stored
// direct URL is only valid until TelegramURLExpiresAt and is refreshed lazily.
type Song struct {
	ID                  uint       `gorm:"primaryKey" json:"-"`
	PublicID            string     `gorm:"size:36;uniqueIndex;not null" json:"id"`
	Title               string     `gorm:"size:255;not null" json:"title"`
	ArtistID            *uint      `gorm:"index" json:"artist_id"`
	CoverURL            string     `gorm:"size:1024" json:"cover_url"`
	Lyrics              string     `gorm:"type:text" json:"lyrics"`
	Moods               string     `gorm:"size:512" json:"moods"` // comma separated mood tags
	DurationSec         int        `gorm:"default:0" json:"duration_sec"`
	PlayCount           int64      `gorm:"default:0" json:"play_count"`
	TelegramAudioFileID string     `gorm:"size:255" json:"telegram_audio_file_id"`
	TelegramDirectURL   *string    `gorm:"size:2048" json:"telegram_direct_url"`
	TelegramURLExpires  *time.Time `gorm:"column:telegram_url_expires_at;index" json:"telegram_url_expires_at"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	Artist              *Artist    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"artist,omitempty"`
}

// BeforeCreate assigns a public UUID when the caller did not provide one.
func (s *Song) BeforeCreate(tx *gorm.DB) error {
	if s.PublicID == "" {
		s.PublicID = uuid.NewString()
	}
	return nil
}
