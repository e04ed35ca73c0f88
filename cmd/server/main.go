package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/example/resumehub/internal/api"
	"github.com/example/resumehub/internal/cache"
	"github.com/example/resumehub/internal/config"
	"github.com/example/resumehub/internal/core"
	"github.com/example/resumehub/internal/db"
	"github.com/example/resumehub/internal/db/memory"
	"github.com/example/resumehub/internal/export"
	"github.com/example/resumehub/internal/metrics"
	"github.com/example/resumehub/internal/middleware"
	"github.com/example/resumehub/internal/storage"
)

func main() {
	// .env is a development convenience; release deployments set the environment directly.
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: no .env file loaded:", err)
		}
	}

	// --- 1. Logger ---
	var zapLogger *zap.Logger
	var err error
	if strings.ToLower(os.Getenv("GIN_MODE")) == "release" {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	// --- 2. Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded",
		zap.String("storeBackend", appConfig.StoreBackend), zap.String("ginMode", appConfig.GinMode))

	// --- 3. Firebase Admin SDK ---
	// Auth is needed for every backend; Firestore is only used when STORE_BACKEND=firestore.
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	clients, err := db.InitFirebase(initCtx, appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firebase Admin SDK", zap.Error(err))
	}
	defer clients.Close()
	if clients.Auth == nil {
		zapLogger.Fatal("CRITICAL_ERROR: Firebase Auth client is nil after initialization. Application cannot start.")
	}

	// --- 4. Repositories ---
	var (
		resumeRepo db.ResumeRepository
		userRepo   db.UserRepository
		auditRepo  db.AuditRepository
	)
	switch appConfig.StoreBackend {
	case config.BackendMemory:
		zapLogger.Warn("Using in-memory repositories; data is lost on restart")
		resumeRepo = memory.NewResumeStore()
		userRepo = memory.NewUserStore()
		auditRepo = memory.NewAuditStore()
	default:
		if clients.Firestore == nil {
			zapLogger.Fatal("CRITICAL_ERROR: Firestore client is nil after initialization. Application cannot start.")
		}
		resumeRepo = db.NewFirestoreResumeRepository(clients.Firestore, zapLogger)
		userRepo = db.NewFirestoreUserRepository(clients.Firestore, zapLogger)
		auditRepo = db.NewFirestoreAuditRepository(clients.Firestore)
	}

	// --- 5. Cache ---
	var profileCache cache.Cache = cache.NewMemoryCache()
	if appConfig.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(initCtx, appConfig.RedisURL, zapLogger)
		if err != nil {
			zapLogger.Warn("Redis unavailable, falling back to in-process cache", zap.Error(err))
		} else {
			defer redisCache.Close()
			profileCache = redisCache
		}
	}

	// --- 6. Services ---
	validator := core.NewResumeValidator(appConfig.MaxEmbeddedImageBytes)
	auditService := core.NewAuditService(auditRepo)
	userService := core.NewUserService(userRepo, clients.Auth, profileCache, appConfig.CacheTTL, validator, zapLogger)
	resumeService := core.NewResumeService(resumeRepo, userService, validator, zapLogger)
	adminService := core.NewAdminService(userRepo, resumeRepo, clients.Auth, auditService, profileCache, zapLogger)
	migrationService := core.NewMigrationService(resumeRepo, validator, auditService, zapLogger)

	// --- 7. Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics, err := metrics.New(registry)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to register metrics", zap.Error(err))
	}

	// --- 8. Export pipeline ---
	rasterizer := export.NewChromeRasterizer(appConfig.ChromeExecPath, zapLogger)
	defer rasterizer.Close()
	exporter := export.NewExporter(
		export.DefaultCatalog(),
		rasterizer,
		export.NewImageResolver(nil, appConfig.ExportImageTimeout, zapLogger),
		nil,
		export.Config{
			Scale:       appConfig.ExportScale,
			WindowWidth: appConfig.ExportWindowWidth,
			SettleDelay: appConfig.ExportSettleDelay,
		},
		zapLogger,
	)
	exporter.Observe(appMetrics.ObserveExport)

	var archive *storage.Archive
	if appConfig.ArchiveEnabled() {
		store, err := storage.NewMinIO(initCtx, appConfig)
		if err != nil {
			zapLogger.Warn("Export archive disabled: object storage unavailable", zap.Error(err))
		} else {
			archive = storage.NewArchive(store, 0)
			zapLogger.Info("Export archive enabled", zap.String("bucket", appConfig.MinIOBucket))
		}
	}

	// --- 9. Gin engine ---
	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(appConfig))
	router.Use(middleware.PrometheusMiddleware(appMetrics))

	authMW := middleware.NewAuthMiddleware(clients.Auth, userService, zapLogger)

	// --- 10. Routes ---
	// Closed by srv.Shutdown so open SSE streams end and release their Firestore listeners.
	shuttingDown := make(chan struct{})
	api.SetupRoutes(router, zapLogger, authMW, api.Dependencies{
		Resumes:   resumeService,
		Users:     userService,
		Admin:     adminService,
		Migration: migrationService,
		Exporter:  exporter,
		Validator: validator,
		Archive:   archive,
		Metrics:   appMetrics,
		Gatherer:  registry,
		Shutdown:  shuttingDown,
	})

	// --- 11. HTTP server with graceful shutdown ---
	srv := &http.Server{
		Addr:    ":" + appConfig.Port,
		Handler: router,
	}
	srv.RegisterOnShutdown(func() { close(shuttingDown) })

	go func() {
		zapLogger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zapLogger.Info("Shutting down server", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exiting")
}
