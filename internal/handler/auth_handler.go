package handler

import (
	"auth-service/internal/config"
	"auth-service/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
	}
}

func (h *AuthHandler) RegisterRoutes(router *gin.Engine, rateLimitMiddleware gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	if rateLimitMiddleware != nil {
		authGroup.Use(rateLimitMiddleware)
	}
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/login/session", h.loginSession)
		authGroup.POST("/refresh", h.refresh)
		authGroup.POST("/token/verify", h.verify)
		authGroup.POST("/token/check", h.checkStaticToken)
		authGroup.GET("/session", h.checkSession)
		authGroup.POST("/logout", h.logout)
	}

	protected := router.Group("/api")
	protected.Use(h.AuthMiddleware())
	{
		protected.GET("/me", h.getMe)
	}

	interServiceGroup := router.Group("/internal/auth")
	interServiceGroup.Use(h.InternalAuthMiddleware())
	{
		interServiceGroup.DELETE("/users/:user_id", h.deleteUser)
	}
}
