package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/remusic/remusic-admin/models"
	"github.com/remusic/remusic-admin/utils"
)

// SongController manages CRUD operations for the song catalog.
type SongController struct {
	db     *gorm.DB
	cdn    *utils.GitHubCDN
	gemini *utils.GeminiClient
}

// NewSongController creates a new SongController instance. cdn and gemini may
// be nil when the corresponding provider is not configured.
func NewSongController(db *gorm.DB, cdn *utils.GitHubCDN, gemini *utils.GeminiClient) *SongController {
	return &SongController{db: db, cdn: cdn, gemini: gemini}
}

type songPayload struct {
	Title               string `json:"title" binding:"required,min=1"`
	ArtistID            *uint  `json:"artist_id"`
	Lyrics              string `json:"lyrics"`
	Moods               string `json:"moods"`
	DurationSec         int    `json:"duration_sec"`
	TelegramAudioFileID string `json:"telegram_audio_file_id"`
	CoverURL            string `json:"cover_url"`
	CoverBase64         string `json:"cover_base64"`
	CoverFilename       string `json:"cover_filename"`
}

// ListSongs returns paginated songs including artist information.
func (s *SongController) ListSongs(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	mood := strings.TrimSpace(ctx.Query("mood"))

	// Cache plain listing pages only, to avoid cache key explosion on search terms
	cacheKey := fmt.Sprintf("cache:songs:list:mood=%s:page=%d:size=%d", mood, page, pageSize)
	if search == "" {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(200, "application/json", b)
			return
		}
	}

	var songs []models.Song
	var total int64

	query := s.db.Preload("Artist").Order("created_at DESC")
	if search != "" {
		query = query.Where("title ILIKE ?", "%"+search+"%")
	}
	if mood != "" {
		query = query.Where("moods ILIKE ?", "%"+mood+"%")
	}
	if err := query.Model(&models.Song{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count songs")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&songs).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list songs")
		return
	}

	payload := gin.H{
		"items":      songs,
		"pagination": paginationOf(page, pageSize, total),
	}
	if search == "" {
		utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, 0)
	}
	utils.Success(ctx, payload)
}

// GetSong returns a single song by public id.
func (s *SongController) GetSong(ctx *gin.Context) {
	song, ok := s.loadSong(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, gin.H{"song": song})
}

// CreateSong registers a new track in the catalog.
func (s *SongController) CreateSong(ctx *gin.Context) {
	var req songPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	song := models.Song{
		Title:               strings.TrimSpace(req.Title),
		ArtistID:            req.ArtistID,
		Lyrics:              utils.Sanitize(req.Lyrics),
		Moods:               strings.TrimSpace(req.Moods),
		DurationSec:         req.DurationSec,
		TelegramAudioFileID: strings.TrimSpace(req.TelegramAudioFileID),
		CoverURL:            req.CoverURL,
	}
	if song.Title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}

	if req.CoverBase64 != "" {
		url, err := publishCoverAsset(ctx, s.cdn, "songs", req.CoverFilename, req.CoverBase64)
		if err != nil {
			return
		}
		song.CoverURL = url
	}

	if err := s.db.Create(&song).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create song")
		return
	}

	utils.InvalidateByPrefix("cache:songs:list:")
	utils.Success(ctx, gin.H{"song": song})
}

// UpdateSong edits an existing track.
func (s *SongController) UpdateSong(ctx *gin.Context) {
	var req songPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}

	song, ok := s.loadSong(ctx)
	if !ok {
		return
	}

	newFileID := strings.TrimSpace(req.TelegramAudioFileID)
	if newFileID != "" && newFileID != song.TelegramAudioFileID {
		// New audio file invalidates the cached direct URL
		song.TelegramAudioFileID = newFileID
		song.TelegramDirectURL = nil
		song.TelegramURLExpires = nil
	}

	song.Title = strings.TrimSpace(req.Title)
	song.ArtistID = req.ArtistID
	song.Lyrics = utils.Sanitize(req.Lyrics)
	song.Moods = strings.TrimSpace(req.Moods)
	song.DurationSec = req.DurationSec
	if req.CoverURL != "" {
		song.CoverURL = req.CoverURL
	}
	if req.CoverBase64 != "" {
		url, err := publishCoverAsset(ctx, s.cdn, "songs", req.CoverFilename, req.CoverBase64)
		if err != nil {
			return
		}
		song.CoverURL = url
	}

	if err := s.db.Save(&song).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to update song")
		return
	}

	utils.InvalidateByPrefix("cache:songs:list:")
	utils.Success(ctx, gin.H{"song": song})
}

// DeleteSong removes a track from the catalog.
func (s *SongController) DeleteSong(ctx *gin.Context) {
	song, ok := s.loadSong(ctx)
	if !ok {
		return
	}
	if err := s.db.Delete(&song).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to delete song")
		return
	}
	utils.InvalidateByPrefix("cache:songs:list:")
	utils.Success(ctx, gin.H{"message": "song deleted"})
}

// SuggestMoods asks the generative model for mood tags fitting the song.
func (s *SongController) SuggestMoods(ctx *gin.Context) {
	if s.gemini == nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "ai provider is not configured")
		return
	}
	song, ok := s.loadSong(ctx)
	if !ok {
		return
	}

	prompt := fmt.Sprintf(
		"Suggest up to five single-word mood tags for the song %q", song.Title)
	if song.Artist != nil {
		prompt += fmt.Sprintf(" by %q", song.Artist.Name)
	}
	if song.Lyrics != "" {
		prompt += ". Lyrics:\n" + song.Lyrics
	}
	prompt += "\nAnswer with a comma separated list only."

	text, err := s.gemini.Generate(ctx.Request.Context(), prompt)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50226, "mood suggestion failed")
		return
	}

	moods := []string{}
	for _, m := range strings.Split(text, ",") {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			moods = append(moods, m)
		}
	}
	utils.Success(ctx, gin.H{"moods": moods})
}

func (s *SongController) loadSong(ctx *gin.Context) (models.Song, bool) {
	var song models.Song
	id := strings.TrimSpace(ctx.Param("id"))
	err := s.db.Preload("Artist").Where("public_id = ?", id).First(&song).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "song not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to load song")
		}
		return song, false
	}
	return song, true
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func paginationOf(page, pageSize int, total int64) gin.H {
	return gin.H{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}
