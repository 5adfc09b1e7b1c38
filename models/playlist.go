package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Playlist is an editorial, ordered collection of songs.
type Playlist struct {
	ID          uint           `gorm:"primaryKey" json:"-"`
	PublicID    string         `gorm:"size:36;uniqueIndex;not null" json:"id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	CoverURL    string         `gorm:"size:1024" json:"cover_url"`
	Published   bool           `gorm:"default:false" json:"published"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Songs       []PlaylistSong `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"songs,omitempty"`
}

// PlaylistSong is the ordered membership row; Position is the drag-and-drop order.
type PlaylistSong struct {
	ID         uint `gorm:"primaryKey" json:"-"`
	PlaylistID uint `gorm:"index:idx_playlist_position,priority:1;not null" json:"-"`
	SongID     uint `gorm:"index;not null" json:"-"`
	Position   int  `gorm:"index:idx_playlist_position,priority:2;not null" json:"position"`
	Song       Song `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"song"`
}

func (p *Playlist) BeforeCreate(tx *gorm.DB) error {
	if p.PublicID == "" {
		p.PublicID = uuid.NewString()
	}
	return nil
}
