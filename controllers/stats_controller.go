package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/remusic/remusic-admin/models"
	"github.com/remusic/remusic-admin/utils"
)

// StatsController serves the dashboard counters.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns catalog and moderation counters for the dashboard.
func (s *StatsController) GetStats(ctx *gin.Context) {
	const cacheKey = "cache:stats:dashboard"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	counts := map[string]int64{}
	type countQuery struct {
		key   string
		query *gorm.DB
	}
	queries := []countQuery{
		{"songs", s.db.Model(&models.Song{})},
		{"artists", s.db.Model(&models.Artist{})},
		{"playlists", s.db.Model(&models.Playlist{})},
		{"listeners", s.db.Model(&models.Listener{})},
		{"pending_requests", s.db.Model(&models.SongRequest{}).Where("status = ?", models.RequestPending)},
		{"stale_links", s.db.Model(&models.Song{}).
			Where("telegram_audio_file_id <> ''").
			Where("telegram_url_expires_at IS NOT NULL AND telegram_url_expires_at <= ?", time.Now())},
	}
	for _, q := range queries {
		var c int64
		if err := q.query.Count(&c).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50090, "failed to compute stats")
			return
		}
		counts[q.key] = c
	}

	payload := gin.H{"counts": counts}
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Minute)
	utils.Success(ctx, payload)
}
