package models

import "time"

// Song request workflow states.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
	RequestDone     = "done"
)

// SongRequest is a listener's wish for a track to be added to the catalog.
type SongRequest struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ListenerID *uint     `gorm:"index" json:"listener_id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	ArtistName string    `gorm:"size:255" json:"artist_name"`
	Note       string    `gorm:"size:1024" json:"note"`
	Status     string    `gorm:"size:16;default:'pending';index" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Listener   *Listener `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"listener,omitempty"`
}
