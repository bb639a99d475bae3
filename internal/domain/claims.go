package domain

import "github.com/golang-jwt/jwt/v5"

// Token types carried in the "type" claim. A token of one type must never be
// accepted where the other is expected, even if the signature is valid.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims represents the signed claim set of both token kinds. The Type
// field discriminates access from refresh tokens; callers decode through
// token.Codec which asserts the expected type.
type TokenClaims struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
