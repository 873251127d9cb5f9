package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/handler"
	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/config"
	"github.com/noah-isme/lms-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-api/pkg/middleware/requestid"
)

type handlers struct {
	auth        *handler.AuthHandler
	users       *handler.UserHandler
	courses     *handler.CourseHandler
	videos      *handler.VideoHandler
	lessons     *handler.LessonHandler
	enrollments *handler.EnrollmentHandler
	metrics     *handler.MetricsHandler
}

type routerDeps struct {
	cfg      *config.Config
	logger   *zap.Logger
	tokens   middleware.TokenValidator
	limiter  middleware.Counter
	metrics  *service.MetricsService
	handlers handlers
}

func newRouter(deps routerDeps) *gin.Engine {
	cfg := deps.cfg
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))
	r.Use(middleware.WithResponseMeta())

	h := deps.handlers
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	var limiter middleware.Counter
	if cfg.RateLimit.Enabled {
		limiter = deps.limiter
	}
	loginLimit := middleware.RateLimit(limiter, deps.metrics, middleware.RateLimitConfig{Scope: "login", Limit: cfg.RateLimit.LoginLimit, Window: cfg.RateLimit.Window}, deps.logger)
	registerLimit := middleware.RateLimit(limiter, deps.metrics, middleware.RateLimitConfig{Scope: "register", Limit: cfg.RateLimit.RegisterLimit, Window: cfg.RateLimit.Window}, deps.logger)

	auth := api.Group("/auth")
	{
		auth.POST("/register", registerLimit, h.auth.Register)
		auth.POST("/login", loginLimit, h.auth.Login)
		auth.POST("/refresh", h.auth.Refresh)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.tokens))
	{
		secured.POST("/auth/logout", h.auth.Logout)
		secured.POST("/auth/change-password", h.auth.ChangePassword)
		secured.GET("/auth/me", h.auth.Me)
		secured.GET("/me/courses", h.courses.MyCourses)

		courses := secured.Group("/courses")
		courses.GET("", h.courses.List)
		courses.POST("", h.courses.Create)
		courses.GET("/:id", h.courses.Get)
		courses.PUT("/:id", h.courses.Update)
		courses.DELETE("/:id", h.courses.Delete)
		courses.GET("/:id/roster", h.courses.Roster)

		videos := secured.Group("/videos")
		videos.GET("", h.videos.List)
		videos.POST("", h.videos.Create)
		videos.GET("/:id", h.videos.Get)
		videos.PUT("/:id", h.videos.Update)
		videos.DELETE("/:id", h.videos.Delete)

		lessons := secured.Group("/lessons")
		lessons.GET("", h.lessons.List)
		lessons.POST("", h.lessons.Create)
		lessons.GET("/:id", h.lessons.Get)
		lessons.PUT("/:id", h.lessons.Update)
		lessons.DELETE("/:id", h.lessons.Delete)

		enrollments := secured.Group("/enrollments")
		enrollments.GET("", h.enrollments.List)
		enrollments.POST("", h.enrollments.Create)
		enrollments.GET("/:id", h.enrollments.Get)
		enrollments.DELETE("/:id", h.enrollments.Delete)
		enrollments.PATCH("/:id/progress", h.enrollments.UpdateProgress)

		users := secured.Group("/users")
		users.GET("", h.users.List)
		users.POST("", h.users.Create)
		users.GET("/:id", h.users.Get)
		users.PUT("/:id", h.users.Update)
		users.DELETE("/:id", h.users.Delete)
		users.PUT("/:id/role", middleware.RequireRoles(models.RoleAdmin), h.users.ChangeRole)

		secured.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), h.metrics.Summary)
	}

	return r
}
