package handlers

import (
	"net/http"

	"board2048/internal/auth"
	"board2048/internal/config"
	"board2048/internal/i18n"
	"board2048/internal/logging"
	"board2048/internal/session"
	"board2048/internal/version"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterDeps are the services the HTTP surface is built from
type RouterDeps struct {
	Config   *config.Config
	I18n     *i18n.I18n
	Logger   *log.Logger
	Auth     *auth.Service
	Sessions *session.Manager
	// WebSocket serves /ws when set
	WebSocket gin.HandlerFunc
}

// NewRouter wires every HTTP route
func NewRouter(d RouterDeps) *gin.Engine {
	authHandler := NewAuthHandler(d.Auth, d.Config, d.I18n, d.Logger)
	gameHandler := NewGameHandler(d.Sessions, d.I18n, d.Logger)
	leaderboardHandler := NewLeaderboardHandler(d.Sessions, d.I18n, d.Logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.GinMiddleware(d.Logger))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = d.Config.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept-Language"}
	router.Use(cors.New(corsConfig))

	router.Use(i18n.Middleware(d.I18n))

	// Health check endpoint
	if d.Config.Server.EnableHealthCheck {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"service":  "board2048",
				"sessions": d.Sessions.Active(),
				"version":  version.Version,
				"rules":    version.Rules(d.Sessions.Rules()),
			})
		})
	}

	// Authentication routes
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/guest", authHandler.Guest)
		authRoutes.GET("/login", authHandler.Login)
		authRoutes.GET("/callback", authHandler.Callback)
		authRoutes.POST("/logout", authHandler.AuthMiddleware(), authHandler.Logout)
		authRoutes.GET("/me", authHandler.AuthMiddleware(), authHandler.Me)
	}

	// WebSocket endpoint
	if d.WebSocket != nil {
		router.GET("/ws", d.WebSocket)
	}

	// Public API routes (no authentication required)
	publicAPI := router.Group("/api/public")
	{
		publicAPI.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
	}

	// API routes (protected)
	apiRoutes := router.Group("/api")
	apiRoutes.Use(authHandler.AuthMiddleware())
	{
		apiRoutes.GET("/game", gameHandler.State)
		apiRoutes.POST("/game/new", gameHandler.NewGame)
		apiRoutes.POST("/game/move", gameHandler.Move)
		apiRoutes.POST("/game/undo", gameHandler.Undo)
		apiRoutes.POST("/game/score", gameHandler.SubmitScore)

		admin := apiRoutes.Group("/admin", authHandler.AdminMiddleware())
		admin.GET("/refresh-cache", leaderboardHandler.RefreshCache)
		admin.DELETE("/leaderboard", leaderboardHandler.Clear)
	}

	return router
}
