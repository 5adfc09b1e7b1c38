package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/remusic/remusic-admin/models"
	"github.com/remusic/remusic-admin/utils"
)

// ListenerController manages the streaming app's user accounts.
type ListenerController struct {
	db *gorm.DB
}

// NewListenerController creates a new ListenerController instance.
func NewListenerController(db *gorm.DB) *ListenerController {
	return &ListenerController{db: db}
}

// ListListeners returns paginated app users.
func (l *ListenerController) ListListeners(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))

	var listeners []models.Listener
	var total int64

	query := l.db.Order("created_at DESC")
	if search != "" {
		query = query.Where("nickname ILIKE ? OR email ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if banned := ctx.Query("banned"); banned == "true" {
		query = query.Where("banned = true")
	}
	if err := query.Model(&models.Listener{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to count listeners")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&listeners).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to list listeners")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      listeners,
		"pagination": paginationOf(page, pageSize, total),
	})
}

// GetListener returns one app user.
func (l *ListenerController) GetListener(ctx *gin.Context) {
	listener, ok := l.loadListener(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, gin.H{"listener": listener})
}

// UpdateListener edits moderation fields (currently the ban flag and nickname).
func (l *ListenerController) UpdateListener(ctx *gin.Context) {
	var req struct {
		Nickname *string `json:"nickname"`
		Banned   *bool   `json:"banned"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}
	listener, ok := l.loadListener(ctx)
	if !ok {
		return
	}

	if req.Nickname != nil {
		listener.Nickname = strings.TrimSpace(*req.Nickname)
	}
	if req.Banned != nil {
		listener.Banned = *req.Banned
	}
	if err := l.db.Save(&listener).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to update listener")
		return
	}
	utils.Success(ctx, gin.H{"listener": listener})
}

// DeleteListener soft-deletes an app user.
func (l *ListenerController) DeleteListener(ctx *gin.Context) {
	listener, ok := l.loadListener(ctx)
	if !ok {
		return
	}
	if err := l.db.Delete(&listener).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to delete listener")
		return
	}
	utils.Success(ctx, gin.H{"message": "listener deleted"})
}

func (l *ListenerController) loadListener(ctx *gin.Context) (models.Listener, bool) {
	var listener models.Listener
	if err := l.db.First(&listener, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40404, "listener not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to load listener")
		}
		return listener, false
	}
	return listener, true
}
