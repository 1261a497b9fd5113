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

	_ "painai/api/swagger" // swagger docs
	"painai/internal/auth"
	"painai/internal/config"
	"painai/internal/database"
	"painai/internal/handler"
	"painai/internal/logger"
	"painai/internal/middleware"
	"painai/internal/repository"
	"painai/internal/service"
	"painai/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const sessionPurgeInterval = time.Hour

// @title           Painai Timesheet API
// @version         1.0
// @description     Timesheet recording, approval and reporting.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Database connection failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(cfg.Server.AllowedOrigins, zapLogger)
	go wsHub.Run(ctx)

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	workTypeRepo := repository.NewWorkTypeRepository(db)
	timesheetRepo := repository.NewTimesheetRepository(db)
	historyRepo := repository.NewTimesheetHistoryRepository(db)
	reportRepo := repository.NewReportRepository(db)

	permCache := newPermissionCache(ctx, cfg, zapLogger)
	tokens := auth.NewTokenManager(cfg.JWT)

	// Services
	roleService := service.NewRoleService(roleRepo, auditRepo, txManager, permCache, zapLogger)
	userService := service.NewUserService(userRepo, roleRepo, auditRepo, txManager, tokens, zapLogger)
	auditService := service.NewAuditService(auditRepo)
	projectService := service.NewProjectService(projectRepo, auditRepo, txManager)
	holidayService := service.NewHolidayService(holidayRepo, auditRepo, txManager)
	workTypeService := service.NewWorkTypeService(workTypeRepo, auditRepo, txManager, zapLogger)
	timesheetService := service.NewTimesheetService(txManager, timesheetRepo, historyRepo, projectRepo, workTypeRepo, wsHub, zapLogger)
	approvalService := service.NewApprovalService(txManager, timesheetRepo, historyRepo, wsHub, zapLogger)
	reportService := service.NewReportService(reportRepo, timesheetRepo, projectRepo, holidayRepo, userRepo, cfg.Schedule.StandardDailyHours, zapLogger)

	if err := roleService.SeedDefaultRolesAndPermissions(ctx); err != nil {
		zapLogger.Fatal("Failed to seed roles", zap.Error(err))
	}
	if err := workTypeService.SeedDefaults(ctx); err != nil {
		zapLogger.Fatal("Failed to seed work types", zap.Error(err))
	}
	go purgeSessions(ctx, userService, zapLogger)

	authMW := middleware.NewAuthMiddleware(tokens, roleService, permCache, zapLogger)

	// Handlers
	handlers := []interface{ RegisterRoutes(*gin.RouterGroup) }{
		handler.NewUserHandler(userService, authMW, tokens.AccessTTL(), tokens.RefreshTTL(), !cfg.IsRelease()),
		handler.NewRoleHandler(roleService, authMW),
		handler.NewAuditHandler(auditService, authMW),
		handler.NewProjectHandler(projectService, authMW),
		handler.NewHolidayHandler(holidayService, authMW),
		handler.NewWorkTypeHandler(workTypeService, authMW),
		handler.NewTimesheetHandler(timesheetService, authMW),
		handler.NewApprovalHandler(approvalService, authMW),
		handler.NewReportHandler(reportService, authMW),
		handler.NewWebsocketHandler(wsHub, authMW),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(zapLogger))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	router.Use(cors.New(corsConfig))
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws"})))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	for _, h := range handlers {
		h.RegisterRoutes(router.Group(""))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server listening", zap.Int("port", cfg.Server.Port), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	zapLogger.Info("Server exited")
}

// newPermissionCache uses Redis when enabled and reachable, otherwise an in-process cache.
func newPermissionCache(ctx context.Context, cfg *config.Config, log *zap.Logger) middleware.PermissionCache {
	if !cfg.Redis.Enabled {
		return middleware.NewMemoryPermissionCache(middleware.DefaultPermissionTTL)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable, falling back to in-memory permission cache", zap.String("addr", cfg.RedisAddr()), zap.Error(err))
		_ = rdb.Close()
		return middleware.NewMemoryPermissionCache(middleware.DefaultPermissionTTL)
	}
	log.Info("Using Redis permission cache", zap.String("addr", cfg.RedisAddr()))
	return middleware.NewRedisPermissionCache(rdb, middleware.DefaultPermissionTTL, log)
}

func purgeSessions(ctx context.Context, users service.UserService, log *zap.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := users.PurgeExpiredSessions(ctx)
			if err != nil {
				log.Warn("Session purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("Purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}
