package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/example/resumehub/internal/core"
	"github.com/example/resumehub/internal/export"
	"github.com/example/resumehub/internal/metrics"
	"github.com/example/resumehub/internal/middleware"
	"github.com/example/resumehub/internal/storage"
)

// Dependencies are the services the HTTP layer is built on. Archive, Metrics,
// Gatherer and Shutdown are optional. Shutdown should be closed when the server
// begins shutting down so live streams return.
type Dependencies struct {
	Resumes   core.ResumeService
	Users     core.UserService
	Admin     core.AdminService
	Migration core.MigrationService
	Exporter  *export.Exporter
	Validator *core.ResumeValidator
	Archive   *storage.Archive
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Shutdown  <-chan struct{}
}

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (logging, recovery, CORS, metrics) is expected to be applied to router by the caller.
func SetupRoutes(router *gin.Engine, logger *zap.Logger, authMW *middleware.AuthMiddleware, deps Dependencies) {
	authHandler := NewAuthHandler(deps.Users, logger)
	userHandler := NewUserHandler(deps.Users, logger)
	resumeHandler := NewResumeHandler(deps.Resumes, logger)
	streamHandler := NewStreamHandler(deps.Resumes, deps.Metrics, deps.Shutdown, logger)
	exportHandler := NewExportHandler(deps.Resumes, deps.Users, deps.Exporter, deps.Validator, deps.Archive, logger)
	adminHandler := NewAdminHandler(deps.Admin, logger)
	migrationHandler := NewMigrationHandler(deps.Migration, logger)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/auth/register", authHandler.Register)

		authed := apiV1.Group("", authMW.VerifyToken())
		{
			users := authed.Group("/users")
			{
				users.POST("/initialize", userHandler.InitializeUserProfile)
				users.GET("/me", userHandler.GetCurrentUserProfile)
				users.PUT("/me", userHandler.UpdateCurrentUserProfile)
			}

			resumes := authed.Group("/resumes")
			{
				resumes.GET("", resumeHandler.ListResumes)
				resumes.POST("", resumeHandler.CreateResume)
				resumes.GET("/stream", streamHandler.StreamMine)
				resumes.GET("/:id", resumeHandler.GetResume)
				resumes.GET("/:id/stream", streamHandler.StreamResume)
				resumes.PUT("/:id", resumeHandler.SaveResume)
				resumes.DELETE("/:id", resumeHandler.DeleteResume)
				resumes.POST("/:id/training", resumeHandler.AddTraining)
				resumes.PUT("/:id/training/:trainingId", resumeHandler.UpdateTraining)
				resumes.DELETE("/:id/training/:trainingId", resumeHandler.DeleteTraining)
				resumes.POST("/:id/export", exportHandler.ExportResume)
			}

			authed.GET("/themes", exportHandler.ListThemes)
			authed.GET("/feed", resumeHandler.Feed)
			authed.GET("/search", resumeHandler.Search)
			authed.POST("/migrations/import", migrationHandler.ImportLocalResumes)

			admin := authed.Group("/admin", middleware.RequireAdmin())
			{
				admin.GET("/users", adminHandler.ListUsers)
				admin.PATCH("/users/:id/status", adminHandler.SetUserStatus)
				admin.PATCH("/users/:id/role", adminHandler.SetUserRole)
				admin.DELETE("/users/:id", adminHandler.DeleteUser)
				admin.GET("/stats", adminHandler.Stats)
			}
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Resume backend is healthy."})
	})
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	logger.Info("API routes configured successfully under /api/v1 and /health.")
}
