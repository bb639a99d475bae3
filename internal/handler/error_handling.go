package handler

import (
	"errors"
	"net/http"

	"auth-service/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp domain.ErrorResponse

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		errResp = domain.ErrorResponse{Code: domain.ErrCodeWrongCredentials, Message: "Invalid username or password"}
	case errors.Is(err, domain.ErrTooManyAttempts):
		statusCode = http.StatusTooManyRequests
		errResp = domain.ErrorResponse{Code: domain.ErrCodeTooManyAttempts, Message: "Too many failed login attempts, try again later"}
	case errors.Is(err, domain.ErrTokenExpired):
		statusCode = http.StatusUnauthorized
		errResp = domain.ErrorResponse{Code: domain.ErrCodeTokenExpired, Message: "Token has expired"}
	case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrTokenMalformed):
		statusCode = http.StatusUnauthorized
		errResp = domain.ErrorResponse{Code: domain.ErrCodeTokenInvalid, Message: "Token is invalid or malformed"}
	case errors.Is(err, domain.ErrTokenNotFound):
		statusCode = http.StatusUnauthorized
		errResp = domain.ErrorResponse{Code: domain.ErrCodeTokenInvalid, Message: "Provided token is invalid (possibly revoked or expired)"}
	case errors.Is(err, domain.ErrSessionNotFound):
		statusCode = http.StatusUnauthorized
		errResp = domain.ErrorResponse{Code: domain.ErrCodeTokenInvalid, Message: "Session not found or expired"}
	case errors.Is(err, domain.ErrRecordExists):
		statusCode = http.StatusConflict
		errResp = domain.ErrorResponse{Code: domain.ErrCodeDuplicateUser, Message: "User already exists"}
	case errors.Is(err, domain.ErrRecordNotFound), errors.Is(err, domain.ErrProfileNotFound):
		statusCode = http.StatusNotFound
		errResp = domain.ErrorResponse{Code: domain.ErrCodeNotFound, Message: "User not found"}
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		statusCode = http.StatusBadGateway
		errResp = domain.ErrorResponse{Code: domain.ErrCodeUpstream, Message: "Account service is temporarily unavailable"}
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = domain.ErrorResponse{Code: domain.ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}
