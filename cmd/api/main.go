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

	_ "github.com/classtrack/classtrack-api/api/swagger"
	"github.com/classtrack/classtrack-api/internal/handler"
	"github.com/classtrack/classtrack-api/internal/middleware"
	"github.com/classtrack/classtrack-api/internal/repository"
	"github.com/classtrack/classtrack-api/internal/service"
	"github.com/classtrack/classtrack-api/pkg/cache"
	"github.com/classtrack/classtrack-api/pkg/config"
	"github.com/classtrack/classtrack-api/pkg/database"
	"github.com/classtrack/classtrack-api/pkg/logger"
	corsmiddleware "github.com/classtrack/classtrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classtrack/classtrack-api/pkg/middleware/requestid"
)

// @title ClassTrack API
// @version 1.0.0
// @description Attendance session tracking for lecturers and students
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	// Redis is an accelerator, not a dependency: without it analytics fall
	// back to computing on every request.
	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, analytics caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr)

	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	lecturerRepo := repository.NewLecturerRepository(db)

	validate := validator.New()

	authSvc := service.NewAuthService(lecturerRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "classtrack-api",
	})
	linkBuilder := service.NewLinkBuilder(cfg.Links)
	sessionSvc := service.NewSessionService(sessionRepo, attendanceRepo, linkBuilder, validate, logr, metricsSvc, cfg.Sessions)
	analyticsSvc := service.NewAnalyticsService(sessionRepo, attendanceRepo, cacheSvc, cfg.Analytics, logr)
	attendanceSvc := service.NewAttendanceService(sessionRepo, attendanceRepo, analyticsSvc, validate, logr, metricsSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	analyticsSvc.Start(ctx)
	defer analyticsSvc.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
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
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	public := api.Group("/public")
	public.GET("/sessions/:id", sessionHandler.GetPublic)
	public.POST("/attendance", attendanceHandler.Submit)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	protected.POST("/sessions", sessionHandler.Create)
	protected.GET("/sessions", sessionHandler.List)
	protected.GET("/sessions/:id", sessionHandler.Get)
	protected.DELETE("/sessions/:id", sessionHandler.Delete)
	protected.GET("/sessions/:id/export", sessionHandler.Export)
	protected.GET("/analytics", analyticsHandler.Stats)

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
