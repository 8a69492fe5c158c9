package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/uni-records-api/api/swagger"
	"github.com/noah-isme/uni-records-api/internal/handler"
	internalmiddleware "github.com/noah-isme/uni-records-api/internal/middleware"
	"github.com/noah-isme/uni-records-api/internal/repository"
	"github.com/noah-isme/uni-records-api/internal/service"
	"github.com/noah-isme/uni-records-api/pkg/cache"
	"github.com/noah-isme/uni-records-api/pkg/config"
	"github.com/noah-isme/uni-records-api/pkg/database"
	"github.com/noah-isme/uni-records-api/pkg/jobs"
	"github.com/noah-isme/uni-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-records-api/pkg/middleware/requestid"
	"github.com/noah-isme/uni-records-api/pkg/storage"
)

// @title University Records API
// @version 1.0.0
// @description Student registry, course catalog, enrollment ledger and result ledger.
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	// A typed nil *redis.Client would make the cache repository look enabled.
	var redisClient redis.UniversalClient
	rc, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
	} else if rc != nil {
		redisClient = rc
		defer rc.Close() //nolint:errcheck
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	resultRepo := repository.NewResultRepository(db)
	reportRepo := repository.NewReportRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	userRepo := repository.NewUserRepository(db)

	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, cacheSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, metrics, validate, logr)
	resultSvc := service.NewResultService(resultRepo, enrollmentRepo, studentRepo, courseRepo, metrics, validate, logr)
	reportSvc := service.NewReportService(reportRepo, resultRepo, enrollmentRepo, studentRepo, courseRepo, metrics, validate, logr)
	portalSvc := service.NewPortalService(studentRepo, courseRepo, enrollmentSvc, resultSvc, reportSvc, logr)

	files, err := storage.NewLocalStorage(cfg.Exports.Dir)
	if err != nil {
		logr.Fatal("export storage unavailable", zap.Error(err))
	}
	exportSvc := service.NewExportService(reportSvc, files, storage.NewSignedURLSigner(cfg.Exports.SigningSecret, cfg.Exports.ResultTTL), service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.ResultTTL,
	}, logr, nil, nil)

	worker := service.NewExportWorker(exportJobRepo, exportSvc, metrics, cfg.Exports.MaxRetries, logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.Workers,
		MaxRetries: cfg.Exports.MaxRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	exportJobSvc := service.NewExportJobService(exportJobRepo, queue, exportSvc, metrics, validate, logr, service.ExportJobConfig{
		ResultTTL:       cfg.Exports.ResultTTL,
		CleanupInterval: time.Hour,
	})
	if cfg.Exports.Enabled {
		queue.Start(ctx)
		defer queue.Stop()
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Students:    handler.NewStudentHandler(studentSvc),
		Courses:     handler.NewCourseHandler(courseSvc, enrollmentSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Results:     handler.NewResultHandler(resultSvc),
		Reports:     handler.NewReportHandler(reportSvc),
		Portal:      handler.NewPortalHandler(portalSvc),
		Exports:     handler.NewExportHandler(exportJobSvc, exportSvc),
		Metrics:     handler.NewMetricsHandler(metrics, db),
	}, handler.RouteDeps{Tokens: authSvc, Audit: userRepo, Logger: logr})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

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
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
