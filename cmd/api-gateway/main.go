package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/vnpt-kd/kpi-plan-api/api/swagger"
	"github.com/vnpt-kd/kpi-plan-api/internal/handler"
	"github.com/vnpt-kd/kpi-plan-api/internal/middleware"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	"github.com/vnpt-kd/kpi-plan-api/internal/repository"
	"github.com/vnpt-kd/kpi-plan-api/internal/service"
	"github.com/vnpt-kd/kpi-plan-api/pkg/ai"
	"github.com/vnpt-kd/kpi-plan-api/pkg/cache"
	"github.com/vnpt-kd/kpi-plan-api/pkg/config"
	"github.com/vnpt-kd/kpi-plan-api/pkg/database"
	"github.com/vnpt-kd/kpi-plan-api/pkg/export"
	"github.com/vnpt-kd/kpi-plan-api/pkg/jobs"
	"github.com/vnpt-kd/kpi-plan-api/pkg/logger"
	corsmiddleware "github.com/vnpt-kd/kpi-plan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vnpt-kd/kpi-plan-api/pkg/middleware/requestid"
	"github.com/vnpt-kd/kpi-plan-api/pkg/storage"
)

// @title KPI Plan API
// @version 1.0.0
// @description Weekly sales KPI tracking for VNPT district sales teams
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The dashboard degrades to uncached reads without Redis.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)
	snapshotSvc := service.NewSnapshotService(userRepo, planRepo, logr)

	dashboardSvc := service.NewDashboardService(snapshotSvc, cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL:   cfg.Dashboard.CacheTTL,
		WeeklyKeep: cfg.Dashboard.WeeklyKeep,
	})

	approvalSvc := service.NewApprovalService(planRepo, userRepo, dashboardSvc, logr)
	planSvc := service.NewPlanService(planRepo, userRepo, userRepo, dashboardSvc, validate, logr)
	userSvc := service.NewUserService(userRepo, dashboardSvc, validate, logr)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "kpi-plan-api",
	})

	exportSvc := service.NewExportService(planRepo, service.ExportConfig{FilePrefix: cfg.Exports.FilePrefix},
		logr, export.NewExcelExporter(), export.NewPDFExporter(), export.NewCSVExporter())

	analysisSvc := service.NewAnalysisService(planRepo, nil, validate, logr)
	if cfg.AI.Enabled {
		reviewer := ai.NewClient(ai.Config{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		}, logr)
		analysisSvc = service.NewAnalysisService(planRepo, reviewer, validate, logr)
	}

	fileStore, err := storage.NewLocalStorage(cfg.Reports.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SigningSecret, cfg.Reports.ResultTTL)

	reportWorker := service.NewReportWorker(reportRepo, exportSvc, fileStore, signer,
		cfg.APIPrefix, cfg.Reports.MaxRetries, logr)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.Workers,
		BufferSize: cfg.Reports.QueueSize,
		MaxRetries: cfg.Reports.MaxRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	reportQueue.Start(ctx)
	defer reportQueue.Stop()

	reportSvc := service.NewReportService(reportRepo, reportQueue, fileStore, signer, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.ResultTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.MaxRetries,
		APIPrefix:       cfg.APIPrefix,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	planHandler := handler.NewPlanHandler(planSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	reportHandler := handler.NewReportHandler(exportSvc, reportSvc)
	analysisHandler := handler.NewAnalysisHandler(analysisSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(authSvc))

	users := protected.Group("/users", middleware.RequireRoles(models.RoleAdmin, models.RoleManager))
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
		users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Delete)
	}

	plans := protected.Group("/plans")
	{
		plans.GET("", planHandler.List)
		plans.GET("/:id", planHandler.Get)
		plans.POST("", planHandler.Create)
		plans.PUT("/:id", planHandler.Update)
		plans.DELETE("/:id", planHandler.Delete)
		plans.POST("/:id/adjustment", planHandler.RequestAdjustment)

		managed := plans.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleManager))
		managed.POST("/:id/approve", approvalHandler.Approve)
		managed.POST("/:id/reject", approvalHandler.Reject)
		managed.POST("/:id/adjustment/approve", approvalHandler.ApproveAdjustment)
		managed.POST("/:id/adjustment/reject", approvalHandler.RejectAdjustment)
		managed.POST("/:id/review", planHandler.Review)
	}

	protected.GET("/dashboard", dashboardHandler.Summary)
	protected.GET("/analysis", analysisHandler.Analyze)

	reports := protected.Group("/reports")
	{
		reports.GET("/export", middleware.Audit(userRepo, models.AuditActionReportExport, "reports"), reportHandler.Export)
		reports.POST("/jobs", reportHandler.CreateJob)
		reports.GET("/jobs/:id", reportHandler.JobStatus)
	}

	// Download links carry their own signed token so browsers can follow
	// them without the Authorization header.
	api.GET("/reports/download/:token", reportHandler.Download)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
