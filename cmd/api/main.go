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

	_ "github.com/class1/class1-admin-api/api/swagger"
	"github.com/class1/class1-admin-api/internal/handler"
	"github.com/class1/class1-admin-api/internal/middleware"
	"github.com/class1/class1-admin-api/internal/repository"
	"github.com/class1/class1-admin-api/internal/service"
	"github.com/class1/class1-admin-api/pkg/cache"
	"github.com/class1/class1-admin-api/pkg/config"
	"github.com/class1/class1-admin-api/pkg/database"
	"github.com/class1/class1-admin-api/pkg/jobs"
	"github.com/class1/class1-admin-api/pkg/logger"
	corsmiddleware "github.com/class1/class1-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/class1/class1-admin-api/pkg/middleware/requestid"
	"github.com/class1/class1-admin-api/pkg/storage"
)

// @title Class1 Admin API
// @version 1.0.0
// @description Administration backend for the tutoring school
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "driver", cfg.Database.Driver, "error", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(db); err != nil {
		logr.Sugar().Fatalw("failed to ensure schema", "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()

	instructorRepo := repository.NewInstructorRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	surveyRepo := repository.NewSurveyRepository(db)
	userRepo := repository.NewUserRepository(db)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.Issuer, validate, logr)
	instructorSvc := service.NewInstructorService(instructorRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, instructorRepo, validate, logr)
	progressSvc := service.NewProgressService(progressRepo, studentRepo, cacheRepo, cfg.Monthly.OverviewCacheTTL, validate, logr)
	surveySvc := service.NewSurveyService(surveyRepo, studentRepo, progressSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(studentRepo, instructorRepo, progressRepo, cacheRepo, cfg.Dashboard.CacheTTL, logr)

	if err := authSvc.EnsureBootstrapAdmin(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
		logr.Sugar().Fatalw("failed to seed admin account", "error", err)
	}

	var reportHandler *handler.ReportHandler
	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "dir", cfg.Reports.StorageDir, "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(surveyRepo, store, signer, cfg.APIPrefix+"/reports/download", logr)

		reportRepo := repository.NewReportRepository(db)
		worker := service.NewReportWorker(reportRepo, exportSvc, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)

		reportSvc := service.NewReportService(reportRepo, reportQueue, exportSvc, cfg.Reports.SignedURLTTL, cfg.Reports.CleanupInterval, logr)
		reportSvc.StartCleanup(ctx)
		reportHandler = handler.NewReportHandler(reportSvc)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handlers := handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Instructors: handler.NewInstructorHandler(instructorSvc),
		Students:    handler.NewStudentHandler(studentSvc),
		Progress:    handler.NewProgressHandler(progressSvc),
		Surveys:     handler.NewSurveyHandler(surveySvc),
		Reports:     reportHandler,
		Dashboard:   handler.NewDashboardHandler(dashboardSvc),
		Metrics:     handler.NewMetricsHandler(metricsSvc, db),
	}
	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if reportQueue != nil {
		reportQueue.Stop()
	}
}
