package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword generates a bcrypt digest of the password. bcrypt salts each
// call itself, so two hashes of the same password never match.
func HashPassword(password string) ([]byte, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return digest, nil
}

// CheckPassword compares a plaintext password against a stored digest.
// Malformed digests are treated as a mismatch, never an error.
func CheckPassword(password string, digest []byte) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(password)) == nil
}

// dummyDigest is a throwaway bcrypt digest at the same cost as real ones.
var dummyDigest = func() []byte {
	digest, err := bcrypt.GenerateFromPassword([]byte("5d41402abc4b2a76b9719d911017c592"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return digest
}()

// DummyCheck runs a bcrypt comparison against the throwaway digest and
// discards the result. Rejection paths that never reach a stored hash call
// it so their latency matches a real password check.
func DummyCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyDigest, []byte(password))
}
