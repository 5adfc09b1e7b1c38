package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/remusic/remusic-admin/models"
)

// GormLinkStore implements LinkStore on top of the songs table.
type GormLinkStore struct {
	db *gorm.DB
}

// NewGormLinkStore creates a store backed by the given DB handle.
func NewGormLinkStore(db *gorm.DB) *GormLinkStore {
	return &GormLinkStore{db: db}
}

// GetLink loads the link columns of a song by its public id.
func (s *GormLinkStore) GetLink(ctx context.Context, songID string) (LinkRecord, error) {
	var song models.Song
	err := s.db.WithContext(ctx).Where("public_id = ?", songID).First(&song).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LinkRecord{}, ErrSongNotFound
		}
		return LinkRecord{}, err
	}
	return linkRecordOf(song), nil
}

// SaveLink persists a freshly minted direct URL with its expiry.
func (s *GormLinkStore) SaveLink(ctx context.Context, songID, url string, expiresAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Song{}).
		Where("public_id = ?", songID).
		Updates(map[string]interface{}{
			"telegram_direct_url":     url,
			"telegram_url_expires_at": expiresAt,
		}).Error
}

// ListExpiredLinks returns songs whose stored link has already lapsed,
// capped at limit to bound a single maintenance pass.
func (s *GormLinkStore) ListExpiredLinks(ctx context.Context, limit int) ([]LinkRecord, error) {
	var songs []models.Song
	err := s.db.WithContext(ctx).
		Where("telegram_audio_file_id <> ''").
		Where("telegram_url_expires_at IS NOT NULL AND telegram_url_expires_at <= ?", time.Now()).
		Order("telegram_url_expires_at ASC").
		Limit(limit).
		Find(&songs).Error
	if err != nil {
		return nil, err
	}
	records := make([]LinkRecord, 0, len(songs))
	for _, song := range songs {
		records = append(records, linkRecordOf(song))
	}
	return records, nil
}

func linkRecordOf(song models.Song) LinkRecord {
	return LinkRecord{
		SongID:    song.PublicID,
		FileID:    song.TelegramAudioFileID,
		DirectURL: song.TelegramDirectURL,
		ExpiresAt: song.TelegramURLExpires,
	}
}
