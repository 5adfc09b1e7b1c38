package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/remusic/remusic-admin/models"
	"github.com/remusic/remusic-admin/utils"
)

// PlaylistController manages editorial playlists and their song ordering.
type PlaylistController struct {
	db  *gorm.DB
	cdn *utils.GitHubCDN
}

// NewPlaylistController creates a new PlaylistController instance.
func NewPlaylistController(db *gorm.DB, cdn *utils.GitHubCDN) *PlaylistController {
	return &PlaylistController{db: db, cdn: cdn}
}

type playlistPayload struct {
	Title         string `json:"title" binding:"required,min=1"`
	Description   string `json:"description"`
	Published     *bool  `json:"published"`
	CoverURL      string `json:"cover_url"`
	CoverBase64   string `json:"cover_base64"`
	CoverFilename string `json:"cover_filename"`
}

// ListPlaylists returns paginated playlists.
func (p *PlaylistController) ListPlaylists(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var playlists []models.Playlist
	var total int64

	query := p.db.Order("created_at DESC")
	if err := query.Model(&models.Playlist{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to count playlists")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&playlists).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to list playlists")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      playlists,
		"pagination": paginationOf(page, pageSize, total),
	})
}

// GetPlaylist returns one playlist with its songs in display order.
func (p *PlaylistController) GetPlaylist(ctx *gin.Context) {
	playlist, ok := p.loadPlaylist(ctx)
	if !ok {
		return
	}
	if err := p.db.
		Preload("Songs", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Songs.Song").
		Preload("Songs.Song.Artist").
		Where("id = ?", playlist.ID).
		First(&playlist).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to load playlist songs")
		return
	}
	utils.Success(ctx, gin.H{"playlist": playlist})
}

// CreatePlaylist adds a new playlist.
func (p *PlaylistController) CreatePlaylist(ctx *gin.Context) {
	var req playlistPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}

	playlist := models.Playlist{
		Title:       strings.TrimSpace(req.Title),
		Description: utils.Sanitize(req.Description),
		CoverURL:    req.CoverURL,
	}
	if req.Published != nil {
		playlist.Published = *req.Published
	}
	if req.CoverBase64 != "" {
		url, err := publishCoverAsset(ctx, p.cdn, "playlists", req.CoverFilename, req.CoverBase64)
		if err != nil {
			return
		}
		playlist.CoverURL = url
	}

	if err := p.db.Create(&playlist).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to create playlist")
		return
	}
	utils.Success(ctx, gin.H{"playlist": playlist})
}

// UpdatePlaylist edits playlist metadata.
func (p *PlaylistController) UpdatePlaylist(ctx *gin.Context) {
	var req playlistPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "invalid request payload")
		return
	}
	playlist, ok := p.loadPlaylist(ctx)
	if !ok {
		return
	}

	playlist.Title = strings.TrimSpace(req.Title)
	playlist.Description = utils.Sanitize(req.Description)
	if req.Published != nil {
		playlist.Published = *req.Published
	}
	if req.CoverURL != "" {
		playlist.CoverURL = req.CoverURL
	}
	if req.CoverBase64 != "" {
		url, err := publishCoverAsset(ctx, p.cdn, "playlists", req.CoverFilename, req.CoverBase64)
		if err != nil {
			return
		}
		playlist.CoverURL = url
	}

	if err := p.db.Save(&playlist).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to update playlist")
		return
	}
	utils.Success(ctx, gin.H{"playlist": playlist})
}

// DeletePlaylist removes a playlist and its membership rows.
func (p *PlaylistController) DeletePlaylist(ctx *gin.Context) {
	playlist, ok := p.loadPlaylist(ctx)
	if !ok {
		return
	}
	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", playlist.ID).Delete(&models.PlaylistSong{}).Error; err != nil {
			return err
		}
		return tx.Delete(&playlist).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to delete playlist")
		return
	}
	utils.Success(ctx, gin.H{"message": "playlist deleted"})
}

// SetSongs replaces the playlist's ordered song list in one transaction; the
// panel sends the full list after every drag-and-drop edit.
func (p *PlaylistController) SetSongs(ctx *gin.Context) {
	var req struct {
		SongIDs []string `json:"song_ids" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid request payload")
		return
	}

	playlist, ok := p.loadPlaylist(ctx)
	if !ok {
		return
	}

	ids := utils.UniqueStrings(req.SongIDs)

	var songs []models.Song
	if len(ids) > 0 {
		if err := p.db.Where("public_id IN ?", ids).Find(&songs).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50056, "failed to load songs")
			return
		}
	}
	if len(songs) != len(ids) {
		utils.Error(ctx, http.StatusBadRequest, 40053, "unknown song id in list")
		return
	}
	byPublicID := make(map[string]uint, len(songs))
	for _, song := range songs {
		byPublicID[song.PublicID] = song.ID
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", playlist.ID).Delete(&models.PlaylistSong{}).Error; err != nil {
			return err
		}
		for pos, id := range ids {
			row := models.PlaylistSong{
				PlaylistID: playlist.ID,
				SongID:     byPublicID[id],
				Position:   pos,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50057, "failed to reorder playlist")
		return
	}

	utils.Success(ctx, gin.H{"message": "playlist updated", "count": len(ids)})
}

func (p *PlaylistController) loadPlaylist(ctx *gin.Context) (models.Playlist, bool) {
	var playlist models.Playlist
	id := strings.TrimSpace(ctx.Param("id"))
	if err := p.db.Where("public_id = ?", id).First(&playlist).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40403, "playlist not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50058, "failed to load playlist")
		}
		return playlist, false
	}
	return playlist, true
}
