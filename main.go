package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/cppla/phishguard/config"
	"github.com/cppla/phishguard/routes"
	"github.com/cppla/phishguard/services"
	"github.com/cppla/phishguard/storage"
	"github.com/cppla/phishguard/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	// Migrates every model and seeds statuses and notification types
	db := config.InitDatabase()

	store, err := storage.New(cfg.Storage)
	if err != nil {
		utils.Sugar.Fatalf("failed to init %s storage: %v", cfg.Storage.Driver, err)
	}

	r := routes.SetupRouter(db, store)

	stopJanitor := services.StartNotificationJanitor(
		services.NewNotificationService(db),
		cfg.Notifications.RetentionDays,
		time.Duration(cfg.Notifications.CleanupIntervalMinutes)*time.Minute,
	)

	utils.Logger.Info("starting server", zap.String("port", cfg.App.Port), zap.String("storage", store.Kind()))
	if err := utils.GraceServer(":"+cfg.App.Port, r, stopJanitor); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
