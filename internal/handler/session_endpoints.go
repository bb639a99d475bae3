package handler

import (
	"net/http"

	"auth-service/internal/domain"

	"github.com/gin-gonic/gin"
)

func (h *AuthHandler) loginSession(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, domain.ErrorResponse{Code: domain.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	result, err := h.authService.LoginSession(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		loginsTotal.WithLabelValues("failure").Inc()
		handleServiceError(c, err)
		return
	}
	loginsTotal.WithLabelValues("success").Inc()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieSessionKey, result.SessionToken, int(h.cfg.SessionTTL.Seconds()), "/", "", h.secureCookies(), true)
	c.JSON(http.StatusOK, gin.H{
		"user_id":       result.UserID,
		"session_token": result.SessionToken,
		"access_token":  result.Tokens.AccessToken,
		"refresh_token": result.Tokens.RefreshToken,
		"at_expires":    result.Tokens.AtExpires,
		"rt_expires":    result.Tokens.RtExpires,
	})
}

// secureCookies reports whether session cookies must be HTTPS-only.
// Development stays on plain HTTP behind docker-compose.
func (h *AuthHandler) secureCookies() bool {
	return h.cfg.Env == "production"
}

// sessionTokenFrom extracts the session token from the cookie, falling back
// to the X-Session-Token header for non-browser clients.
func (h *AuthHandler) sessionTokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(h.cfg.CookieSessionKey); err == nil && token != "" {
		return token
	}
	return c.GetHeader("X-Session-Token")
}

// checkSession resolves the session token to a user id. Reading the session
// renews its TTL.
func (h *AuthHandler) checkSession(c *gin.Context) {
	sessionToken := h.sessionTokenFrom(c)
	if sessionToken == "" {
		handleServiceError(c, domain.ErrSessionNotFound)
		return
	}

	userID, err := h.authService.CheckSession(c.Request.Context(), sessionToken)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "valid": true})
}

func (h *AuthHandler) logout(c *gin.Context) {
	sessionToken := h.sessionTokenFrom(c)
	if sessionToken == "" {
		// No cookie means nothing to destroy.
		c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), sessionToken); err != nil {
		handleServiceError(c, err)
		return
	}

	c.SetCookie(h.cfg.CookieSessionKey, "", -1, "/", "", h.secureCookies(), true)
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
