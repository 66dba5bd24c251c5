package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/itops-hq/asset-custody-api/api/swagger"
	"github.com/itops-hq/asset-custody-api/internal/handler"
	"github.com/itops-hq/asset-custody-api/internal/middleware"
	"github.com/itops-hq/asset-custody-api/internal/models"
	"github.com/itops-hq/asset-custody-api/internal/repository"
	"github.com/itops-hq/asset-custody-api/internal/service"
	"github.com/itops-hq/asset-custody-api/migrations"
	"github.com/itops-hq/asset-custody-api/pkg/cache"
	"github.com/itops-hq/asset-custody-api/pkg/config"
	"github.com/itops-hq/asset-custody-api/pkg/database"
	"github.com/itops-hq/asset-custody-api/pkg/logger"
	corsmiddleware "github.com/itops-hq/asset-custody-api/pkg/middleware/cors"
	reqidmiddleware "github.com/itops-hq/asset-custody-api/pkg/middleware/requestid"
)

// @title Asset Custody API
// @version 1.0.0
// @description Asset register and custody workflow service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if err := migrations.Apply(context.Background(), db); err != nil {
		logr.Sugar().Fatalw("failed to apply migrations", "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Pending.CacheTTL, logr,
		cfg.Pending.CacheEnabled && redisClient != nil)

	userRepo := repository.NewUserRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	returnRepo := repository.NewReturnRepository(db)
	editRepo := repository.NewEditRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	pendingRepo := repository.NewPendingRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, logr)
	assetSvc := service.NewAssetService(assetRepo, userRepo, historyRepo, logr)
	transferSvc := service.NewTransferService(transferRepo, assetRepo, userRepo, logr)
	returnSvc := service.NewReturnService(returnRepo, assetRepo, userRepo, logr)
	editSvc := service.NewEditService(editRepo, assetRepo, logr)
	approvalSvc := service.NewApprovalService(transferSvc, returnSvc, editSvc, cacheSvc, logr)
	pendingSvc := service.NewPendingService(pendingRepo, cacheSvc, cfg.Pending.CacheTTL, logr)
	statsSvc := service.NewStatsService(statsRepo, pendingRepo, cacheSvc, cfg.Pending.CacheTTL, logr)
	exportSvc := service.NewExportService(assetRepo, cfg.Export, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	assetHandler := handler.NewAssetHandler(assetSvc, exportSvc)
	transferHandler := handler.NewTransferHandler(transferSvc)
	returnHandler := handler.NewReturnHandler(returnSvc)
	editHandler := handler.NewEditHandler(editSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc, pendingSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	users := authed.Group("/users")
	users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
	users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
	users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Get)
	users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
	users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Deactivate)

	assets := authed.Group("/assets")
	assets.GET("", assetHandler.List)
	assets.POST("", middleware.RequireRoles(models.RoleAdmin), assetHandler.Create)
	assets.GET("/export", middleware.RequireRoles(models.RoleAdmin), assetHandler.Export)
	assets.GET("/:id", assetHandler.Get)
	assets.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), assetHandler.Update)
	assets.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), assetHandler.Delete)
	assets.GET("/:id/history", assetHandler.History)

	transfers := authed.Group("/transfers")
	transfers.GET("", transferHandler.List)
	transfers.POST("", transferHandler.Create)
	transfers.GET("/:id", transferHandler.Get)
	transfers.POST("/:id/confirm", transferHandler.Confirm)
	transfers.DELETE("/:id", transferHandler.Cancel)

	returns := authed.Group("/returns")
	returns.GET("", returnHandler.List)
	returns.POST("", returnHandler.Create)
	returns.GET("/:id", returnHandler.Get)
	returns.DELETE("/:id", returnHandler.Cancel)

	edits := authed.Group("/edit-requests")
	edits.GET("", editHandler.List)
	edits.POST("", editHandler.Create)
	edits.GET("/:id", editHandler.Get)
	edits.DELETE("/:id", editHandler.Cancel)

	approvals := authed.Group("/approvals")
	approvals.POST("/decide", middleware.RequireRoles(models.RoleAdmin), approvalHandler.Decide)
	approvals.GET("/pending/summary", approvalHandler.PendingSummary)

	authed.GET("/stats", middleware.RequireRoles(models.RoleAdmin), statsHandler.Overview)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
