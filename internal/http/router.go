package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"user-directory-server/internal/config"
	"user-directory-server/internal/http/handlers"
	"user-directory-server/internal/http/middleware"
	"user-directory-server/internal/services"
	"user-directory-server/internal/utils"
)

type Dependencies struct {
	Config      *config.Config
	Users       *services.UserService
	Auth        middleware.Authenticator
	Logger      *slog.Logger
	RateLimiter middleware.Limiter
	Health      handlers.Pinger
}

func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(deps.Config.AllowedOrigins))

	userHandler := handlers.NewUserHandler(deps.Users)

	router.GET("/healthz", handlers.Health(deps.Health))

	users := router.Group("/users")
	{
		public := users.Group("")
		if deps.RateLimiter != nil {
			public.Use(middleware.RateLimit(deps.RateLimiter, deps.Logger))
		}
		public.POST("", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/recover-password", userHandler.RecoverPassword)
	}

	protected := users.Group("")
	protected.Use(middleware.JWTAuth(deps.Auth))
	{
		protected.GET("", userHandler.List)
		protected.GET("/:id", userHandler.Get)
		protected.PUT("/:id", userHandler.Update)
		protected.PATCH("/:id", userHandler.PartialUpdate)
		protected.DELETE("/:id", userHandler.Delete)
	}

	router.NoRoute(func(c *gin.Context) {
		utils.RespondError(c, utils.NewNotFoundError("route not found"))
	})

	return router
}
