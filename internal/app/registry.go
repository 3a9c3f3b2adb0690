package app

import (
	"database/sql"
	"net/http"

	"go-orgstructure/internal/assignment"
	"go-orgstructure/internal/config"
	"go-orgstructure/internal/hierarchy"
	"go-orgstructure/internal/member"
	"go-orgstructure/internal/messaging/kafka"
	"go-orgstructure/internal/middleware"
	"go-orgstructure/internal/orgposition"
	"go-orgstructure/internal/orgunit"
	"go-orgstructure/internal/rbac"
	"go-orgstructure/internal/rbac/infra"
	"go-orgstructure/internal/shared/dbtx"
	"go-orgstructure/internal/shared/metrics"
	"go-orgstructure/internal/structure"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	cfg *config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	logger *zap.Logger,
) error {
	// --- Repositories ---
	unitRepo := orgunit.NewRepository(gormDB)
	positionRepo := orgposition.NewRepository(gormDB)
	assignmentRepo := assignment.NewRepository(gormDB)
	memberRepo := member.NewRepository(gormDB)
	rbacRepo := rbac.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer(cfg.RBAC.ModelPath)
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(rbacRepo, enforcer, cfg.RBAC.PolicyTTL, logger)

	// --- Services ---
	txRunner := dbtx.NewRunner(db,
		dbtx.WithMaxAttempts(cfg.Tx.MaxAttempts),
		dbtx.WithInitialDelay(cfg.Tx.InitialDelay),
		dbtx.WithMaxDelay(cfg.Tx.MaxDelay),
		dbtx.WithLogger(logger),
	)
	directory := member.NewDirectory(memberRepo, rdb, logger)
	builder := hierarchy.NewBuilder(unitRepo, positionRepo, assignmentRepo, directory, rdb, cfg.Cache.HierarchyTTL, logger)
	structureService := structure.NewService(txRunner, unitRepo, positionRepo, assignmentRepo, directory, builder, outboxRepo, logger)

	// --- Handlers ---
	structureHandler := structure.NewHandler(structureService, rdb, logger)
	rbacHandler := rbac.NewHandler(rbacService, logger)

	// --- Routes Registration ---
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET(cfg.HTTP.MetricsPath, gin.WrapH(metrics.Handler()))

	api := router.Group("/api/v1")
	api.Use(
		middleware.RateLimitByIP(rate.Limit(cfg.HTTP.IPRateLimit), cfg.HTTP.IPRateBurst),
		middleware.AuthMiddleware(cfg.JWT.Secret),
		middleware.ExtractUserID(),
		middleware.ContextLogger(logger.Named("http.request")),
		middleware.ResolveActor(rbacService),
	)
	{
		structure.RegisterRoutes(api, structureHandler, rdb)
		rbac.RegisterRoutes(api, rbacHandler)
	}

	return nil
}
