package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"auth-service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleServiceErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, domain.ErrCodeWrongCredentials},
		{"too many attempts", domain.ErrTooManyAttempts, http.StatusTooManyRequests, domain.ErrCodeTooManyAttempts},
		{"token expired", domain.ErrTokenExpired, http.StatusUnauthorized, domain.ErrCodeTokenExpired},
		{"token invalid", domain.ErrTokenInvalid, http.StatusUnauthorized, domain.ErrCodeTokenInvalid},
		{"token malformed", domain.ErrTokenMalformed, http.StatusUnauthorized, domain.ErrCodeTokenInvalid},
		{"token not found", domain.ErrTokenNotFound, http.StatusUnauthorized, domain.ErrCodeTokenInvalid},
		{"session not found", domain.ErrSessionNotFound, http.StatusUnauthorized, domain.ErrCodeTokenInvalid},
		{"record exists", domain.ErrRecordExists, http.StatusConflict, domain.ErrCodeDuplicateUser},
		{"record not found", domain.ErrRecordNotFound, http.StatusNotFound, domain.ErrCodeNotFound},
		{"profile not found", domain.ErrProfileNotFound, http.StatusNotFound, domain.ErrCodeNotFound},
		{"upstream unavailable", domain.ErrUpstreamUnavailable, http.StatusBadGateway, domain.ErrCodeUpstream},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, domain.ErrCodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			handleServiceError(c, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)

			var resp domain.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestHandleServiceErrorMapsWrappedErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	wrapped := errors.Join(errors.New("context"), domain.ErrTooManyAttempts)
	handleServiceError(c, wrapped)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
