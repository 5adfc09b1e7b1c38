package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/remusic/remusic-admin/config"
	"github.com/remusic/remusic-admin/services"
	"github.com/remusic/remusic-admin/utils"
)

// StreamController hosts the link resolution endpoints consumed by the
// playback backend. Response shapes here are part of the streaming contract
// and intentionally bypass the panel's response envelope.
type StreamController struct {
	db        *gorm.DB
	cache     *services.LinkCache
	store     services.LinkStore
	refresher *services.Refresher
}

// NewStreamController creates a new StreamController instance.
func NewStreamController(db *gorm.DB, cache *services.LinkCache, store services.LinkStore) *StreamController {
	return &StreamController{
		db:        db,
		cache:     cache,
		store:     store,
		refresher: services.NewRefresher(cache, utils.Sugar),
	}
}

// onDemandConcurrency bounds the HTTP-triggered batch; the maintenance job
// uses its own, lower limit from configuration.
const onDemandConcurrency = 5

// ResolveLink returns a playable URL for one song, cached when still fresh.
func (s *StreamController) ResolveLink(ctx *gin.Context) {
	songID := strings.TrimSpace(ctx.Query("song_id"))
	if songID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing song_id"})
		return
	}

	if s.cache == nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "link resolution is not configured"})
		return
	}

	link, err := s.cache.Resolve(ctx.Request.Context(), songID)
	if err != nil {
		var resErr *services.ResolutionError
		switch {
		case errors.Is(err, services.ErrSongNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"success": false, "error": "song not found"})
		case errors.Is(err, services.ErrMissingFileID):
			ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "song has no audio file"})
		case errors.As(err, &resErr):
			ctx.JSON(http.StatusBadGateway, gin.H{"success": false, "error": resErr.Error()})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
		}
		return
	}

	source := link.Source
	if source == services.SourceRefreshed {
		source = "api"
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"source":     source,
		"url":        link.URL,
		"expires_at": link.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// RefreshLinks force-refreshes a set of songs ("all" resolves to songs whose
// link already lapsed, capped by configuration). The response is always 200
// with a per-item breakdown; partial failure is the expected common case.
func (s *StreamController) RefreshLinks(ctx *gin.Context) {
	var req struct {
		IDs json.RawMessage `json:"ids"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request payload"})
		return
	}

	if s.cache == nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "link resolution is not configured"})
		return
	}

	cfg := config.Get()
	reqCtx := ctx.Request.Context()

	var records []services.LinkRecord
	var preFailed []services.Outcome

	var all string
	if err := json.Unmarshal(req.IDs, &all); err == nil {
		if all != "all" {
			ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": `ids must be "all" or an array of song ids`})
			return
		}
		var err error
		records, err = s.store.ListExpiredLinks(reqCtx, cfg.LinkBatchLimit)
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list expired links"})
			return
		}
	} else {
		var ids []string
		if err := json.Unmarshal(req.IDs, &ids); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": `ids must be "all" or an array of song ids`})
			return
		}
		for _, id := range utils.UniqueStrings(ids) {
			rec, err := s.store.GetLink(reqCtx, id)
			if err != nil {
				preFailed = append(preFailed, services.Outcome{
					SongID: id,
					Status: services.StatusFailed,
					Error:  err.Error(),
				})
				continue
			}
			records = append(records, rec)
		}
	}

	res := s.refresher.RefreshBatch(reqCtx, records, onDemandConcurrency)
	res.Total += len(preFailed)
	res.Failed += len(preFailed)
	res.Outcomes = append(res.Outcomes, preFailed...)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "link refresh completed",
		"total":   res.Total,
		"success": res.Succeeded,
		"failed":  res.Failed,
		"results": res.Outcomes,
	})
}
