package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/harbordocs/harbor/internal/api/handler"
	"github.com/harbordocs/harbor/internal/api/middleware"
	"github.com/harbordocs/harbor/internal/auth"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/repository"
	"github.com/harbordocs/harbor/internal/service"
)

// Deps bundles everything the router needs.
type Deps struct {
	DB           *gorm.DB
	DocumentRepo *repository.DocumentRepository
	Accounts     *service.AccountService
	Search       *service.SearchService
	Templates    *service.TemplateService
	Activity     *service.ActivityService
	Drive        *service.DriveService
	Processor    *service.ProcessorService
	JWT          *auth.JWTManager
	Logger       *logger.Logger

	Mode            string
	AllowedOrigins  []string
	AllowAllOrigins bool
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps *Deps) *gin.Engine {
	switch deps.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Logger))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  deps.AllowedOrigins,
		AllowAllOrigins: deps.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler(deps.DB)
	authHandler := handler.NewAuthHandler(deps.Accounts)
	documentHandler := handler.NewDocumentHandler(deps.DocumentRepo, deps.Drive, deps.Processor, deps.Logger)
	searchHandler := handler.NewSearchHandler(deps.Search)
	templateHandler := handler.NewTemplateHandler(deps.Templates)
	dashboardHandler := handler.NewDashboardHandler(deps.Activity)
	userHandler := handler.NewUserHandler(deps.Accounts)

	// Health check
	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")

	// Auth (public)
	v1.GET("/auth/google", authHandler.Login)
	v1.GET("/auth/google/callback", authHandler.Callback)
	v1.POST("/auth/refresh", authHandler.Refresh)

	// Everything else requires a session
	authed := v1.Group("")
	authed.Use(middleware.RequireAuth(deps.JWT))
	{
		authed.GET("/auth/me", authHandler.Me)
		authed.POST("/auth/logout", authHandler.Logout)

		// Documents
		authed.GET("/documents", documentHandler.List)
		authed.GET("/documents/:id", documentHandler.Get)
		authed.POST("/documents/:id/process", documentHandler.Process)
		authed.DELETE("/documents/:id", documentHandler.Delete)
		authed.POST("/documents/sync", documentHandler.Sync)

		// Search
		authed.POST("/search", searchHandler.Search)
		authed.GET("/search/suggestions", searchHandler.Suggestions)

		// PDF templates
		authed.POST("/templates", templateHandler.Create)
		authed.GET("/templates", templateHandler.List)
		authed.GET("/templates/:id", templateHandler.Get)
		authed.PUT("/templates/:id/prompts", templateHandler.UpdatePrompts)
		authed.POST("/templates/:id/fill", templateHandler.Fill)

		// Dashboard
		authed.GET("/dashboard/activity", dashboardHandler.Activity)
		authed.GET("/dashboard/stats", dashboardHandler.Stats)

		// Users
		authed.GET("/users/profile", userHandler.Profile)
		authed.PUT("/users/profile", userHandler.UpdateProfile)
		authed.GET("/users", userHandler.List)
	}

	return r
}
