package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"auth-service/internal/config"
	"auth-service/internal/domain"
	"auth-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuthService returns a canned session login; unstubbed methods panic.
type stubAuthService struct {
	service.AuthService
	sessionLogin *domain.SessionLogin
}

func (s *stubAuthService) LoginSession(_ context.Context, _, _ string) (*domain.SessionLogin, error) {
	return s.sessionLogin, nil
}

func performSessionLogin(t *testing.T, env string) *http.Response {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stub := &stubAuthService{sessionLogin: &domain.SessionLogin{
		UserID:       1,
		SessionToken: "session-token",
		Tokens:       domain.TokenPair{AccessToken: "at", RefreshToken: "rt"},
	}}
	h := NewAuthHandler(stub, &config.Config{
		Env:              env,
		CookieSessionKey: "cookie_session_id",
		SessionTTL:       time.Hour,
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login/session", strings.NewReader(`{"username":"alice","password":"password1"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.loginSession(c)
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Result()
}

func findSessionCookie(resp *http.Response) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "cookie_session_id" {
			return cookie
		}
	}
	return nil
}

func TestSessionCookieSecureFollowsEnvironment(t *testing.T) {
	dev := findSessionCookie(performSessionLogin(t, "development"))
	require.NotNil(t, dev)
	assert.False(t, dev.Secure, "development serves over plain HTTP")
	assert.True(t, dev.HttpOnly)

	prod := findSessionCookie(performSessionLogin(t, "production"))
	require.NotNil(t, prod)
	assert.True(t, prod.Secure, "production cookies are HTTPS-only")
	assert.True(t, prod.HttpOnly)
}
