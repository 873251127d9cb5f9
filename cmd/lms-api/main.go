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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-api/api/swagger"
	"github.com/noah-isme/lms-api/internal/handler"
	"github.com/noah-isme/lms-api/internal/repository"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/cache"
	"github.com/noah-isme/lms-api/pkg/config"
	"github.com/noah-isme/lms-api/pkg/database"
	"github.com/noah-isme/lms-api/pkg/export"
	"github.com/noah-isme/lms-api/pkg/jobs"
	"github.com/noah-isme/lms-api/pkg/logger"
	"github.com/noah-isme/lms-api/pkg/validation"
)

// @title LMS API
// @version 1.0.0
// @description Role-based course catalogue with authorization and visibility rules
// @BasePath /api/v1
// @schemes http https
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Migrations.AutoRun {
		if err := database.Migrate(db, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without cache and rate limiting", zap.Error(err))
			redisClient = nil
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validation.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	auditSvc := service.NewAuditService(userRepo, logr)
	var auditQueue *jobs.Queue
	if cfg.Audit.Async {
		auditQueue = jobs.NewQueue("audit", auditSvc.Handle, jobs.QueueConfig{
			Workers:    cfg.Audit.Workers,
			BufferSize: cfg.Audit.BufferSize,
			MaxRetries: cfg.Audit.MaxRetries,
			Logger:     logr,
		})
		auditQueue.Start(ctx)
		auditSvc.AttachQueue(auditQueue)
	}

	authSvc := service.NewAuthService(userRepo, auditSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	exportSvc := service.NewExportService(export.NewRenderer(), logr)
	userSvc := service.NewUserService(userRepo, cacheSvc, auditSvc, metricsSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, userRepo, enrollmentRepo, videoRepo, lessonRepo, cacheSvc, auditSvc, exportSvc, metricsSvc, validate, logr)
	videoSvc := service.NewVideoService(videoRepo, courseRepo, userRepo, enrollmentRepo, cacheSvc, auditSvc, metricsSvc, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, courseRepo, userRepo, enrollmentRepo, cacheSvc, auditSvc, metricsSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, userRepo, cacheSvc, auditSvc, metricsSvc, validate, logr)

	var maintenanceSvc *service.MaintenanceService
	if cfg.Maintenance.Enabled {
		maintenanceSvc = service.NewMaintenanceService(userRepo, service.MaintenanceConfig{
			TokenPurgeSchedule: cfg.Maintenance.TokenPurgeSchedule,
			TokenRetention:     cfg.Maintenance.TokenRetention,
		}, logr)
		if err := maintenanceSvc.Start(); err != nil {
			logr.Fatal("failed to schedule maintenance", zap.Error(err))
		}
	}

	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router := newRouter(routerDeps{
		cfg:     cfg,
		logger:  logr,
		tokens:  authSvc,
		limiter: cacheRepo,
		metrics: metricsSvc,
		handlers: handlers{
			auth:        handler.NewAuthHandler(authSvc),
			users:       handler.NewUserHandler(userSvc),
			courses:     handler.NewCourseHandler(courseSvc),
			videos:      handler.NewVideoHandler(videoSvc),
			lessons:     handler.NewLessonHandler(lessonSvc),
			enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
			metrics:     handler.NewMetricsHandler(metricsSvc, checks),
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
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
	if maintenanceSvc != nil {
		maintenanceSvc.Stop()
	}
	if auditQueue != nil {
		auditQueue.Stop()
	}
}
