package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/remusic/remusic-admin/config"
	"github.com/remusic/remusic-admin/middleware"
	"github.com/remusic/remusic-admin/models"
	"github.com/remusic/remusic-admin/utils"
)

const tokenDuration = 24 * time.Hour

// AuthController handles admin panel sessions.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// EnsureBootstrapAdmin creates the initial admin account from configuration
// when the table is empty, so a fresh deployment is reachable.
func EnsureBootstrapAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.AdminUser{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	cfg := config.Get()
	if cfg.AdminPassword == "" {
		utils.Sugar.Warn("no admin accounts exist and ADMIN_PASSWORD is unset; panel login is impossible")
		return nil
	}
	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	return db.Create(&models.AdminUser{
		Username:     cfg.AdminUsername,
		PasswordHash: hash,
		DisplayName:  cfg.AdminUsername,
	}).Error
}

// Login verifies credentials and issues a session token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	var admin models.AdminUser
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&admin).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid username or password")
		return
	}
	if !utils.CheckPassword(admin.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(admin.ID, admin.Username, tokenDuration)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to issue token")
		return
	}

	now := time.Now()
	admin.LastLoginAt = &now
	if err := a.db.Model(&admin).Update("last_login_at", now).Error; err != nil {
		utils.Sugar.Warnf("failed to record last login for %s: %v", admin.Username, err)
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"admin": admin,
	})
}

// Me returns the authenticated admin's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	adminID, ok := getAdminID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40121, "unauthorized")
		return
	}
	var admin models.AdminUser
	if err := a.db.First(&admin, adminID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "admin not found")
		return
	}
	utils.Success(ctx, gin.H{"admin": admin})
}

// Logout revokes the current token until its natural expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 {
		token := strings.TrimSpace(parts[1])
		if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
			utils.BlacklistToken(token, claims.ExpiresAt.Time)
		}
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// ChangePassword updates the authenticated admin's password.
func (a *AuthController) ChangePassword(ctx *gin.Context) {
	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}

	adminID, ok := getAdminID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40121, "unauthorized")
		return
	}
	var admin models.AdminUser
	if err := a.db.First(&admin, adminID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "admin not found")
		return
	}
	if !utils.CheckPassword(admin.PasswordHash, req.OldPassword) {
		utils.Error(ctx, http.StatusForbidden, 40310, "old password is incorrect")
		return
	}
	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to hash password")
		return
	}
	if err := a.db.Model(&admin).Update("password_hash", hash).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to update password")
		return
	}
	utils.Success(ctx, gin.H{"message": "password updated"})
}

func getAdminID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextAdminIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}
