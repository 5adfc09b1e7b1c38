package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/remusic/remusic-admin/models"
	"github.com/remusic/remusic-admin/utils"
)

// RequestController manages the song request queue submitted by listeners.
type RequestController struct {
	db *gorm.DB
}

// NewRequestController creates a new RequestController instance.
func NewRequestController(db *gorm.DB) *RequestController {
	return &RequestController{db: db}
}

// ListRequests returns paginated song requests, optionally filtered by status.
func (r *RequestController) ListRequests(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	status := strings.TrimSpace(ctx.Query("status"))

	var requests []models.SongRequest
	var total int64

	query := r.db.Preload("Listener").Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Model(&models.SongRequest{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to count song requests")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&requests).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50081, "failed to list song requests")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      requests,
		"pagination": paginationOf(page, pageSize, total),
	})
}

// UpdateRequestStatus moves a request through the review workflow.
func (r *RequestController) UpdateRequestStatus(ctx *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40080, "invalid request payload")
		return
	}

	switch req.Status {
	case models.RequestPending, models.RequestApproved, models.RequestRejected, models.RequestDone:
	default:
		utils.Error(ctx, http.StatusBadRequest, 40081, "invalid status")
		return
	}

	request, ok := r.loadRequest(ctx)
	if !ok {
		return
	}
	request.Status = req.Status
	if err := r.db.Save(&request).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50082, "failed to update song request")
		return
	}
	utils.Success(ctx, gin.H{"request": request})
}

// DeleteRequest removes a song request.
func (r *RequestController) DeleteRequest(ctx *gin.Context) {
	request, ok := r.loadRequest(ctx)
	if !ok {
		return
	}
	if err := r.db.Delete(&request).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50083, "failed to delete song request")
		return
	}
	utils.Success(ctx, gin.H{"message": "request deleted"})
}

func (r *RequestController) loadRequest(ctx *gin.Context) (models.SongRequest, bool) {
	var request models.SongRequest
	if err := r.db.First(&request, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40406, "song request not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50084, "failed to load song request")
		}
		return request, false
	}
	return request, true
}
