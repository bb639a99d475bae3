package security

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewOpaqueToken returns an unguessable 32-character hex token for sessions
// and static bearer tokens. uuid draws from crypto/rand.
func NewOpaqueToken() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
