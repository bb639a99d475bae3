package domain

// ErrorResponse is the JSON error envelope returned by all HTTP endpoints.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stable machine-readable error codes.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_error"
	ErrCodeWrongCredentials = "wrong_credentials"
	ErrCodeTooManyAttempts  = "too_many_attempts"
	ErrCodeTokenInvalid     = "token_invalid"
	ErrCodeTokenExpired     = "token_expired"
	ErrCodeDuplicateUser    = "duplicate_user"
	ErrCodeNotFound         = "not_found"
	ErrCodeUpstream         = "upstream_unavailable"
	ErrCodeInternal         = "internal_error"
)
