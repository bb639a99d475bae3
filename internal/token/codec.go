package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"auth-service/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Codec issues and verifies RS256-signed claim sets. Signing uses the
// private key; verification only needs the public key, so downstream
// services can validate tokens without holding signing material.
type Codec struct {
	privateKey *rsa.PrivateKey // nil in verify-only deployments
	publicKey  *rsa.PublicKey
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

// Options configures a Codec.
type Options struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// NewCodec creates a Codec from PEM-encoded key material. privatePEM may be
// nil for a verify-only codec; publicPEM is always required.
func NewCodec(privatePEM, publicPEM []byte, opts Options, logger *zap.Logger) (*Codec, error) {
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	var privateKey *rsa.PrivateKey
	if len(privatePEM) > 0 {
		privateKey, err = jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
	}

	return &Codec{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     opts.Issuer,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		logger:     logger.Named("TokenCodec"),
	}, nil
}

// NewCodecFromFiles loads the key pair from PEM files. privateKeyPath may be
// empty for a verify-only codec.
func NewCodecFromFiles(privateKeyPath, publicKeyPath string, opts Options, logger *zap.Logger) (*Codec, error) {
	publicPEM, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file %s: %w", publicKeyPath, err)
	}

	var privatePEM []byte
	if privateKeyPath != "" {
		privatePEM, err = os.ReadFile(privateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key file %s: %w", privateKeyPath, err)
		}
	}

	return NewCodec(privatePEM, publicPEM, opts, logger)
}

// IssueAccess mints a short-lived access token for the user.
func (c *Codec) IssueAccess(userID int64, email string) (string, int64, error) {
	return c.issue(domain.TokenTypeAccess, userID, email, c.accessTTL)
}

// IssueRefresh mints a long-lived refresh token for the user.
func (c *Codec) IssueRefresh(userID int64, email string) (string, int64, error) {
	return c.issue(domain.TokenTypeRefresh, userID, email, c.refreshTTL)
}

func (c *Codec) issue(tokenType string, userID int64, email string, ttl time.Duration) (string, int64, error) {
	if c.privateKey == nil {
		// Configuration error, not a runtime condition: this codec was
		// built without signing material.
		c.logger.Error("Attempted to issue a token without a private key", zap.String("type", tokenType))
		return "", 0, fmt.Errorf("signing key unavailable: %w", domain.ErrInternal)
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &domain.TokenClaims{
		Type:   tokenType,
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.privateKey)
	if err != nil {
		c.logger.Error("Failed to sign token", zap.String("type", tokenType), zap.Error(err))
		return "", 0, fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, expiresAt.Unix(), nil
}

// DecodeAccess verifies a token and asserts it is an access token.
func (c *Codec) DecodeAccess(tokenString string) (*domain.TokenClaims, error) {
	return c.decode(tokenString, domain.TokenTypeAccess)
}

// DecodeRefresh verifies a token and asserts it is a refresh token.
func (c *Codec) DecodeRefresh(tokenString string) (*domain.TokenClaims, error) {
	return c.decode(tokenString, domain.TokenTypeRefresh)
}

func (c *Codec) decode(tokenString, expectedType string) (*domain.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.publicKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			c.logger.Debug("Token verification failed: expired", zap.String("expectedType", expectedType))
			return nil, domain.ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			c.logger.Warn("Token verification failed: malformed", zap.String("expectedType", expectedType))
			return nil, domain.ErrTokenMalformed
		}
		c.logger.Debug("Failed to parse token", zap.String("expectedType", expectedType), zap.Error(err))
		return nil, domain.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*domain.TokenClaims)
	if !ok || !token.Valid {
		c.logger.Warn("Token verification failed: invalid claims type or signature")
		return nil, domain.ErrTokenInvalid
	}

	// A cryptographically valid token of the wrong kind is still invalid
	// for this operation.
	if claims.Type != expectedType {
		c.logger.Warn("Token type mismatch",
			zap.String("expectedType", expectedType),
			zap.String("actualType", claims.Type))
		return nil, domain.ErrTokenInvalid
	}

	return claims, nil
}
