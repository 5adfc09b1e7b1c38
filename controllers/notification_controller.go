package controllers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/remusic/remusic-admin/models"
	"github.com/remusic/remusic-admin/utils"
)

// fanOutConcurrency bounds in-flight FCM sends so one broadcast cannot
// monopolize outbound connections.
const fanOutConcurrency = 8

// NotificationController composes push notifications and delivers them over FCM.
type NotificationController struct {
	db  *gorm.DB
	fcm *utils.FCMClient
}

// NewNotificationController creates a new NotificationController instance.
// fcm may be nil when push delivery is not configured.
func NewNotificationController(db *gorm.DB, fcm *utils.FCMClient) *NotificationController {
	return &NotificationController{db: db, fcm: fcm}
}

// ListNotifications returns paginated notifications, newest first.
func (n *NotificationController) ListNotifications(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var items []models.Notification
	var total int64

	query := n.db.Order("created_at DESC")
	if err := query.Model(&models.Notification{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to count notifications")
		return
	}
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to list notifications")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      items,
		"pagination": paginationOf(page, pageSize, total),
	})
}

// CreateNotification stores a draft notification.
func (n *NotificationController) CreateNotification(ctx *gin.Context) {
	var req struct {
		Title    string `json:"title" binding:"required,min=1"`
		Body     string `json:"body" binding:"required"`
		ImageURL string `json:"image_url"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid request payload")
		return
	}

	notification := models.Notification{
		Title:    strings.TrimSpace(req.Title),
		Body:     utils.Sanitize(req.Body),
		ImageURL: req.ImageURL,
	}
	if err := n.db.Create(&notification).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to create notification")
		return
	}
	utils.Success(ctx, gin.H{"notification": notification})
}

// DeleteNotification removes a notification record.
func (n *NotificationController) DeleteNotification(ctx *gin.Context) {
	notification, ok := n.loadNotification(ctx)
	if !ok {
		return
	}
	if err := n.db.Delete(&notification).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to delete notification")
		return
	}
	utils.Success(ctx, gin.H{"message": "notification deleted"})
}

// SendNotification broadcasts a stored notification to every active listener
// device. Per-token failures are counted, not fatal.
func (n *NotificationController) SendNotification(ctx *gin.Context) {
	if n.fcm == nil {
		utils.Error(ctx, http.StatusInternalServerError, 50074, "push delivery is not configured")
		return
	}
	notification, ok := n.loadNotification(ctx)
	if !ok {
		return
	}

	var rawTokens []string
	err := n.db.Model(&models.Listener{}).
		Where("banned = false AND fcm_token <> ''").
		Pluck("fcm_token", &rawTokens).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50075, "failed to load device tokens")
		return
	}
	tokens := utils.UniqueStrings(rawTokens)
	if len(tokens) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40071, "no registered devices to notify")
		return
	}

	sent, failed := n.fanOut(ctx.Request.Context(), notification, tokens)

	now := time.Now()
	notification.SentAt = &now
	notification.SentCount = sent
	notification.FailCount = failed
	if err := n.db.Save(&notification).Error; err != nil {
		utils.Sugar.Warnf("failed to record send stats for notification %d: %v", notification.ID, err)
	}

	utils.Success(ctx, gin.H{
		"notification": notification,
		"total":        len(tokens),
		"sent":         sent,
		"failed":       failed,
	})
}

func (n *NotificationController) fanOut(ctx context.Context, notification models.Notification, tokens []string) (sent, failed int) {
	sem := make(chan struct{}, fanOutConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, token := range tokens {
		token := token
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			err := n.fcm.Send(ctx, token, notification.Title, notification.Body, notification.ImageURL)
			mu.Lock()
			if err != nil {
				failed++
			} else {
				sent++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	return sent, failed
}

func (n *NotificationController) loadNotification(ctx *gin.Context) (models.Notification, bool) {
	var notification models.Notification
	if err := n.db.First(&notification, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40405, "notification not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50076, "failed to load notification")
		}
		return notification, false
	}
	return notification, true
}
