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

	_ "github.com/noah-isme/staff-appraisal-api/api/swagger"
	"github.com/noah-isme/staff-appraisal-api/internal/handler"
	"github.com/noah-isme/staff-appraisal-api/internal/middleware"
	"github.com/noah-isme/staff-appraisal-api/internal/models"
	"github.com/noah-isme/staff-appraisal-api/internal/repository"
	"github.com/noah-isme/staff-appraisal-api/internal/service"
	"github.com/noah-isme/staff-appraisal-api/pkg/cache"
	"github.com/noah-isme/staff-appraisal-api/pkg/config"
	"github.com/noah-isme/staff-appraisal-api/pkg/database"
	"github.com/noah-isme/staff-appraisal-api/pkg/jobs"
	"github.com/noah-isme/staff-appraisal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/staff-appraisal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/staff-appraisal-api/pkg/middleware/requestid"
)

// @title Staff Appraisal API
// @version 0.1.0
// @description Periodic staff performance appraisal workflow and scoring
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	appraisalRepo := repository.NewAppraisalRepository(db)
	cycleRepo := repository.NewCycleRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	metricsSvc := service.NewMetricsService()

	opts := []service.AppraisalServiceOption{
		service.WithTransitionMetrics(metricsSvc),
	}

	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		opts = append(opts, service.WithAppraisalCache(cacheRepo, cfg.Cache.AppraisalTTL))
	}

	if cfg.Notifications.Enabled {
		queue, notifier := service.NewNotificationQueue(service.NewLogNotifier(logr), jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			BufferSize: cfg.Notifications.BufferSize,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
			Logger:     logr,
		})
		queue.Start(context.Background())
		defer queue.Stop()
		opts = append(opts, service.WithNotifier(notifier))
	}

	appraisalSvc := service.NewAppraisalService(appraisalRepo, userRepo, userRepo, validate, logr, opts...)
	cycleSvc := service.NewCycleService(cycleRepo, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc = service.NewExportService(appraisalSvc, logr)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	appraisalHandler := handler.NewAppraisalHandler(appraisalSvc, exportSvc)
	cycleHandler := handler.NewCycleHandler(cycleSvc)
	navigationHandler := handler.NewNavigationHandler()
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	protected.GET("/navigation", navigationHandler.Get)
	protected.GET("/cycles", cycleHandler.List)
	protected.GET("/cycles/:id", cycleHandler.Get)

	appraisals := protected.Group("/appraisals")
	appraisals.POST("", middleware.RequireRoles(models.RoleAdmin), appraisalHandler.Create)
	appraisals.GET("/me", middleware.RequireRoles(models.RoleTeacher, models.RoleHOD), appraisalHandler.GetCurrent)
	appraisals.GET("/:id", appraisalHandler.Get)
	appraisals.PUT("/:id/parts/:key", middleware.RequireRoles(models.RoleTeacher), appraisalHandler.SavePart)
	appraisals.POST("/:id/recalculate", appraisalHandler.Recalculate)
	appraisals.POST("/:id/transitions", appraisalHandler.Transition)
	appraisals.GET("/:id/history", appraisalHandler.History)
	if exportSvc != nil {
		appraisals.GET("/:id/export", appraisalHandler.Export)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
