package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	"auth-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func generateKeyPairPEM(t *testing.T) (privatePEM, publicPEM []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "generate rsa key")

	privatePEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err, "marshal public key")
	publicPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubBytes,
	})
	return privatePEM, publicPEM
}

func newTestCodec(t *testing.T, opts Options) *Codec {
	t.Helper()
	privatePEM, publicPEM := generateKeyPairPEM(t)
	codec, err := NewCodec(privatePEM, publicPEM, opts, zap.NewNop())
	require.NoError(t, err)
	return codec
}

func TestIssueAndDecodeAccessToken(t *testing.T) {
	codec := newTestCodec(t, Options{
		Issuer:     "auth-service",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 720 * time.Hour,
	})

	signed, expiresAt, err := codec.IssueAccess(42, "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, signed)
	assert.InDelta(t, time.Now().Add(15*time.Minute).Unix(), expiresAt, 5)

	claims, err := codec.DecodeAccess(signed)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenTypeAccess, claims.Type)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "auth-service", claims.Issuer)
	assert.NotEmpty(t, claims.ID, "jti should be set")
}

func TestIssueAndDecodeRefreshToken(t *testing.T) {
	codec := newTestCodec(t, Options{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})

	signed, _, err := codec.IssueRefresh(7, "someone@example.com")
	require.NoError(t, err)

	claims, err := codec.DecodeRefresh(signed)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenTypeRefresh, claims.Type)
	assert.Equal(t, int64(7), claims.UserID)
}

func TestDecodeRejectsWrongTokenType(t *testing.T) {
	codec := newTestCodec(t, Options{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})

	access, _, err := codec.IssueAccess(1, "a@b.c")
	require.NoError(t, err)
	refresh, _, err := codec.IssueRefresh(1, "a@b.c")
	require.NoError(t, err)

	_, err = codec.DecodeRefresh(access)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = codec.DecodeAccess(refresh)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestDecodeExpiredToken(t *testing.T) {
	codec := newTestCodec(t, Options{
		AccessTTL:  -time.Minute,
		RefreshTTL: time.Hour,
	})

	signed, _, err := codec.IssueAccess(1, "a@b.c")
	require.NoError(t, err)

	_, err = codec.DecodeAccess(signed)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestDecodeMalformedToken(t *testing.T) {
	codec := newTestCodec(t, Options{AccessTTL: time.Minute, RefreshTTL: time.Hour})

	_, err := codec.DecodeAccess("not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrTokenMalformed)
}

func TestDecodeRejectsForeignSignature(t *testing.T) {
	signer := newTestCodec(t, Options{AccessTTL: time.Minute, RefreshTTL: time.Hour})
	verifier := newTestCodec(t, Options{AccessTTL: time.Minute, RefreshTTL: time.Hour})

	signed, _, err := signer.IssueAccess(1, "a@b.c")
	require.NoError(t, err)

	_, err = verifier.DecodeAccess(signed)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestVerifyOnlyCodec(t *testing.T) {
	privatePEM, publicPEM := generateKeyPairPEM(t)

	signer, err := NewCodec(privatePEM, publicPEM, Options{AccessTTL: time.Minute, RefreshTTL: time.Hour}, zap.NewNop())
	require.NoError(t, err)

	verifier, err := NewCodec(nil, publicPEM, Options{AccessTTL: time.Minute, RefreshTTL: time.Hour}, zap.NewNop())
	require.NoError(t, err)

	signed, _, err := signer.IssueAccess(9, "a@b.c")
	require.NoError(t, err)

	claims, err := verifier.DecodeAccess(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(9), claims.UserID)

	_, _, err = verifier.IssueAccess(9, "a@b.c")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInternal), "verify-only codec must refuse to sign")
}
