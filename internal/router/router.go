package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/selekta/portal-backend/internal/config"
	"github.com/selekta/portal-backend/internal/handler"
	"github.com/selekta/portal-backend/internal/middleware"
	"github.com/selekta/portal-backend/internal/response"
	"github.com/selekta/portal-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Portal    *handler.PortalHandler
	Dashboard *handler.DashboardHandler
	Code      *handler.CodeHandler
	Monitor   *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the unauthenticated entry points (30 per minute per IP).
	entryLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/admin/login", entryLimiter.Middleware(), handlers.Auth.AdminLogin)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Portal Group (Participant) ─────────────────────────────────
	portal := router.Group("/api/v1/portal")
	{
		portal.POST("/redeem", entryLimiter.Middleware(), handlers.Portal.Redeem)

		session := portal.Group("/session")
		session.Use(middleware.RequireParticipantJWT(authService))
		{
			session.POST("/start", handlers.Portal.StartSession)
			session.GET("/state", handlers.Portal.GetState)
			session.PUT("/answer", handlers.Portal.Answer)
			session.PUT("/flag", handlers.Portal.ToggleFlag)
			session.PUT("/position", handlers.Portal.SetPosition)
			session.POST("/submit", handlers.Portal.Submit)
		}
	}

	// ─── 3. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/dashboard", handlers.Dashboard.GetDashboard)
		adminAPI.GET("/sessions", handlers.Dashboard.ListSessions)
		adminAPI.GET("/export", handlers.Dashboard.ExportCSV)

		adminAPI.POST("/codes", handlers.Code.GenerateCodes)
		adminAPI.GET("/codes", handlers.Code.ListCodes)
	}

	// ─── 4. WebSocket Group (Admin WS Auth) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAdminWSAuth(authService))
	{
		ws.GET("/admin/monitor", handlers.Monitor.MonitorStream)
	}

	return router
}
