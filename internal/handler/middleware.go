package handler

import (
	"net/http"
	"strings"

	"auth-service/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *AuthHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			zap.L().Warn("Authorization header missing")
			tokenVerificationsTotal.WithLabelValues("access", "failure").Inc()
			handleServiceError(c, domain.ErrTokenInvalid)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			zap.L().Warn("Invalid Authorization header format")
			tokenVerificationsTotal.WithLabelValues("access", "failure").Inc()
			handleServiceError(c, domain.ErrTokenInvalid)
			return
		}

		claims, err := h.authService.VerifyAccessToken(c.Request.Context(), parts[1])
		if err != nil {
			zap.L().Warn("Access token verification failed", zap.Error(err))
			tokenVerificationsTotal.WithLabelValues("access", "failure").Inc()
			handleServiceError(c, err)
			return
		}

		tokenVerificationsTotal.WithLabelValues("access", "success").Inc()
		c.Set("user_id", claims.UserID)
		c.Set("access_uuid", claims.ID)
		c.Next()
	}
}

func (h *AuthHandler) InternalAuthMiddleware() gin.HandlerFunc {
	staticSecret := h.cfg.InterServiceSecret
	if staticSecret == "" {
		zap.L().Warn("InternalAuthMiddleware: inter-service secret is not configured, all internal calls will be rejected")
	}

	return func(c *gin.Context) {
		tokenString := c.GetHeader("X-Internal-Service-Token")
		if tokenString == "" || staticSecret == "" || tokenString != staticSecret {
			tokenVerificationsTotal.WithLabelValues("inter-service", "failure").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, domain.ErrorResponse{
				Code:    domain.ErrCodeTokenInvalid,
				Message: "Missing or invalid internal service token",
			})
			return
		}

		tokenVerificationsTotal.WithLabelValues("inter-service", "success").Inc()
		c.Next()
	}
}
