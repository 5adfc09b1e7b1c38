package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/remusic/remusic-admin/config"
	"github.com/remusic/remusic-admin/controllers"
	"github.com/remusic/remusic-admin/middleware"
	"github.com/remusic/remusic-admin/services"
	"github.com/remusic/remusic-admin/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, linkCache *services.LinkCache, linkStore services.LinkStore) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.StreamSecretHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	// Provider clients; nil when unconfigured, controllers degrade per endpoint
	cdn, err := utils.NewGitHubCDN(cfg.GitHubToken, cfg.GitHubOwner, cfg.GitHubRepo, cfg.GitHubBranch)
	if err != nil {
		utils.Sugar.Warnf("github cdn disabled: %v", err)
		cdn = nil
	}
	fcm, err := utils.NewFCMClient(cfg.FCMServerKey)
	if err != nil {
		utils.Sugar.Warnf("push delivery disabled: %v", err)
		fcm = nil
	}
	gemini, err := utils.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		utils.Sugar.Warnf("ai suggestions disabled: %v", err)
		gemini = nil
	}

	authController := controllers.NewAuthController(db)
	songController := controllers.NewSongController(db, cdn, gemini)
	artistController := controllers.NewArtistController(db, cdn)
	playlistController := controllers.NewPlaylistController(db, cdn)
	listenerController := controllers.NewListenerController(db)
	requestController := controllers.NewRequestController(db)
	notificationController := controllers.NewNotificationController(db, fcm)
	statsController := controllers.NewStatsController(db)
	streamController := controllers.NewStreamController(db, linkCache, linkStore)

	api := r.Group("/api/v1")

	loginLimiter := middleware.NewFixedWindowLimiter(time.Minute, 10)
	authGroup := api.Group("/auth")
	authGroup.POST("/login", middleware.RateLimit(loginLimiter), authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.POST("/change-password", middleware.AuthRequired(), authController.ChangePassword)

	// Link resolution for the playback backend: shared secret or admin token,
	// plus a tight per-IP window
	streamLimiter := middleware.NewFixedWindowLimiter(
		time.Duration(cfg.StreamRateLimitWindow)*time.Millisecond,
		cfg.StreamRateLimitMax,
	)
	streamGroup := api.Group("/stream")
	streamGroup.GET("/resolve", middleware.StreamAuth(), middleware.RateLimit(streamLimiter), streamController.ResolveLink)
	streamGroup.POST("/refresh", middleware.AuthRequired(), streamController.RefreshLinks)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired())

	protected.GET("/stats", statsController.GetStats)

	protected.GET("/songs", songController.ListSongs)
	protected.GET("/songs/:id", songController.GetSong)
	protected.POST("/songs", songController.CreateSong)
	protected.PUT("/songs/:id", songController.UpdateSong)
	protected.DELETE("/songs/:id", songController.DeleteSong)
	protected.POST("/songs/:id/mood", songController.SuggestMoods)

	protected.GET("/artists", artistController.ListArtists)
	protected.GET("/artists/:id", artistController.GetArtist)
	protected.POST("/artists", artistController.CreateArtist)
	protected.PUT("/artists/:id", artistController.UpdateArtist)
	protected.DELETE("/artists/:id", artistController.DeleteArtist)

	protected.GET("/playlists", playlistController.ListPlaylists)
	protected.GET("/playlists/:id", playlistController.GetPlaylist)
	protected.POST("/playlists", playlistController.CreatePlaylist)
	protected.PUT("/playlists/:id", playlistController.UpdatePlaylist)
	protected.DELETE("/playlists/:id", playlistController.DeletePlaylist)
	protected.PUT("/playlists/:id/songs", playlistController.SetSongs)

	protected.GET("/listeners", listenerController.ListListeners)
	protected.GET("/listeners/:id", listenerController.GetListener)
	protected.PATCH("/listeners/:id", listenerController.UpdateListener)
	protected.DELETE("/listeners/:id", listenerController.DeleteListener)

	protected.GET("/requests", requestController.ListRequests)
	protected.PATCH("/requests/:id", requestController.UpdateRequestStatus)
	protected.DELETE("/requests/:id", requestController.DeleteRequest)

	protected.GET("/notifications", notificationController.ListNotifications)
	protected.POST("/notifications", notificationController.CreateNotification)
	protected.DELETE("/notifications/:id", notificationController.DeleteNotification)
	protected.POST("/notifications/:id/send", notificationController.SendNotification)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
