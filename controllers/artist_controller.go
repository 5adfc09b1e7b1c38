package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/remusic/remusic-admin/models"
	"github.com/remusic/remusic-admin/utils"
)

// ArtistController manages CRUD operations for artists.
type ArtistController struct {
	db  *gorm.DB
	cdn *utils.GitHubCDN
}

// NewArtistController creates a new ArtistController instance.
func NewArtistController(db *gorm.DB, cdn *utils.GitHubCDN) *ArtistController {
	return &ArtistController{db: db, cdn: cdn}
}

type artistPayload struct {
	Name          string `json:"name" binding:"required,min=1"`
	Bio           string `json:"bio"`
	CoverURL      string `json:"cover_url"`
	CoverBase64   string `json:"cover_base64"`
	CoverFilename string `json:"cover_filename"`
}

// ListArtists returns paginated artists with their song counts.
func (a *ArtistController) ListArtists(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))

	var artists []models.Artist
	var total int64

	query := a.db.Order("name ASC")
	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}
	if err := query.Model(&models.Artist{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to count artists")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&artists).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to list artists")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      artists,
		"pagination": paginationOf(page, pageSize, total),
	})
}

// GetArtist returns one artist with songs.
func (a *ArtistController) GetArtist(ctx *gin.Context) {
	artist, ok := a.loadArtist(ctx)
	if !ok {
		return
	}
	var songs []models.Song
	if err := a.db.Where("artist_id = ?", artist.ID).Order("created_at DESC").Find(&songs).Error; err != nil {
		utils.Sugar.Warnf("failed to load songs for artist %d: %v", artist.ID, err)
	}
	utils.Success(ctx, gin.H{"artist": artist, "songs": songs})
}

// CreateArtist adds a new artist.
func (a *ArtistController) CreateArtist(ctx *gin.Context) {
	var req artistPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	artist := models.Artist{
		Name:     strings.TrimSpace(req.Name),
		Bio:      utils.Sanitize(req.Bio),
		CoverURL: req.CoverURL,
	}
	if req.CoverBase64 != "" {
		url, err := publishCoverAsset(ctx, a.cdn, "artists", req.CoverFilename, req.CoverBase64)
		if err != nil {
			return
		}
		artist.CoverURL = url
	}

	if err := a.db.Create(&artist).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to create artist")
		return
	}
	utils.Success(ctx, gin.H{"artist": artist})
}

// UpdateArtist edits an existing artist.
func (a *ArtistController) UpdateArtist(ctx *gin.Context) {
	var req artistPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid request payload")
		return
	}
	artist, ok := a.loadArtist(ctx)
	if !ok {
		return
	}

	artist.Name = strings.TrimSpace(req.Name)
	artist.Bio = utils.Sanitize(req.Bio)
	if req.CoverURL != "" {
		artist.CoverURL = req.CoverURL
	}
	if req.CoverBase64 != "" {
		url, err := publishCoverAsset(ctx, a.cdn, "artists", req.CoverFilename, req.CoverBase64)
		if err != nil {
			return
		}
		artist.CoverURL = url
	}

	if err := a.db.Save(&artist).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to update artist")
		return
	}
	utils.Success(ctx, gin.H{"artist": artist})
}

// DeleteArtist removes an artist; songs keep existing with a null artist.
func (a *ArtistController) DeleteArtist(ctx *gin.Context) {
	artist, ok := a.loadArtist(ctx)
	if !ok {
		return
	}
	if err := a.db.Delete(&artist).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to delete artist")
		return
	}
	utils.Success(ctx, gin.H{"message": "artist deleted"})
}

func (a *ArtistController) loadArtist(ctx *gin.Context) (models.Artist, bool) {
	var artist models.Artist
	if err := a.db.First(&artist, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40402, "artist not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to load artist")
		}
		return artist, false
	}
	return artist, true
}
