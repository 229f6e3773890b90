package router

import (
	"log/slog"

	"kairos/internal/backup"
	"kairos/internal/config"
	"kairos/internal/handler"
	"kairos/internal/middleware"
	"kairos/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin engine and every API route.
func SetupRouter(cfg *config.Config, db *gorm.DB, log *slog.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(log), gin.Recovery(), middleware.CORS())

	limits := store.Limits{Default: cfg.App.PageSize, Max: cfg.App.MaxPageSize}
	categoryStore := store.NewCategoryStore(db, limits)
	entryStore := store.NewEntryStore(db, limits)

	healthHandler := handler.NewHealthHandler(db)
	r.GET("/", healthHandler.Info)
	r.GET("/health", healthHandler.Health)

	categoryHandler := handler.NewCategoryHandler(categoryStore)
	categories := r.Group("/categories")
	categories.POST("", categoryHandler.Create)
	categories.GET("", categoryHandler.List)
	categories.GET("/:id", categoryHandler.Get)
	categories.PUT("/:id", categoryHandler.Update)
	categories.DELETE("/:id", categoryHandler.Delete)

	entryHandler := handler.NewEntryHandler(entryStore)
	exportHandler := handler.NewExportHandler(entryStore)
	entries := r.Group("/entries")
	entries.POST("", entryHandler.Create)
	entries.GET("", entryHandler.List)
	entries.GET("/category/:id", entryHandler.ListByCategory)
	entries.GET("/export/csv", exportHandler.ExportCSV)
	entries.GET("/export/xlsx", exportHandler.ExportXLSX)
	entries.GET("/:id", entryHandler.Get)
	entries.PUT("/:id", entryHandler.Update)
	entries.DELETE("/:id", entryHandler.Delete)

	backupHandler := handler.NewBackupHandler(backup.NewService(db, cfg.Backup.Dir, cfg.Security.EncryptionKey))
	backups := r.Group("/backups")
	backups.POST("", backupHandler.CreateBackup)
	backups.GET("", backupHandler.ListBackups)
	backups.GET("/:id/download", backupHandler.DownloadBackup)
	backups.POST("/:id/restore", backupHandler.RestoreBackup)
	backups.DELETE("/:id", backupHandler.DeleteBackup)

	return r
}
