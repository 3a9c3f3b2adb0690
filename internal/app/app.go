package app

import (
	"context"

	"go-orgstructure/internal/bootstrap"
	"go-orgstructure/internal/config"
	"go-orgstructure/internal/middleware"
	"go-orgstructure/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter membuat engine dengan middleware global; route modul dipasang oleh registerModules.
func NewRouter(cfg *config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())
	return r
}

// RunAPI menghubungkan infrastruktur, mendaftarkan modul, lalu melayani HTTP sampai ctx selesai.
func RunAPI(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger = logger.Named("app.api")

	gormDB, sqlDB, err := connection.ConnectGORMWithRetry(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	redisClient, err := connection.ConnectRedisWithRetry(ctx, cfg.Redis, cfg.Database.ConnectRetries, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	router := NewRouter(cfg)
	if err := registerModules(router, cfg, sqlDB, gormDB, redisClient, logger); err != nil {
		return err
	}

	auditLogger := bootstrap.NewStdoutAuditLogger(logger)
	auditLogger.Log(ctx, bootstrap.AuditLog{
		Action:  "SERVER_START",
		Message: "Server is starting",
		Meta:    map[string]any{"port": cfg.HTTP.Port, "env": cfg.AppEnv},
	})

	return bootstrap.StartHTTPServer(ctx, router, cfg.HTTP, auditLogger, logger)
}
