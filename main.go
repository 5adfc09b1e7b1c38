package main

import (
	"github.com/remusic/remusic-admin/config"
	"github.com/remusic/remusic-admin/controllers"
	"github.com/remusic/remusic-admin/models"
	"github.com/remusic/remusic-admin/routes"
	"github.com/remusic/remusic-admin/services"
	"github.com/remusic/remusic-admin/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.AdminUser{},
		&models.Artist{},
		&models.Song{},
		&models.Playlist{},
		&models.PlaylistSong{},
		&models.Listener{},
		&models.Notification{},
		&models.SongRequest{},
	)

	if err := controllers.EnsureBootstrapAdmin(db); err != nil {
		utils.Sugar.Fatalf("bootstrap admin failed: %v", err)
	}

	linkStore := services.NewGormLinkStore(db)

	// Without a bot token nothing can mint direct URLs; the stream endpoints
	// then answer 500 until the secret is provided.
	var linkCache *services.LinkCache
	telegram, err := utils.NewTelegramClient(cfg.TelegramBotToken, cfg.TelegramAPIBase)
	if err != nil {
		utils.Sugar.Warnf("link resolution disabled: %v", err)
	} else {
		linkCache = services.NewLinkCache(linkStore, telegram, utils.Sugar)
		cronJob, err := services.StartLinkMaintenance(
			linkCache, linkStore,
			cfg.LinkRefreshCron, cfg.LinkBatchLimit, cfg.LinkBatchConcurrency,
			utils.Sugar,
		)
		if err != nil {
			utils.Sugar.Fatalf("link maintenance schedule invalid: %v", err)
		}
		defer cronJob.Stop()
	}

	r := routes.SetupRouter(db, linkCache, linkStore)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
