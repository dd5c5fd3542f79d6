package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// SessionDuration is the default cookie session lifetime (12 hours)
	SessionDuration = 12 * time.Hour

	// TokenLength is the length of generated session tokens in bytes
	TokenLength = 32
)

// GenerateSessionToken generates a cryptographically secure random session token.
// Returns: token (hex string, handed to the client), token hash (SHA256 hex, stored), error
func GenerateSessionToken() (string, string, error) {
	tokenBytes := make([]byte, TokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", "", fmt.Errorf("generate random token: %w", err)
	}

	token := hex.EncodeToString(tokenBytes)
	return token, HashSessionToken(token), nil
}

// HashSessionToken hashes a session token for storage/lookup
func HashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// CalculateExpiry returns createdAt + ttl, falling back to SessionDuration.
func CalculateExpiry(createdAt time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = SessionDuration
	}
	return createdAt.Add(ttl)
}

// ValidateStoredSession checks expiry and revocation of a stored session row.
func ValidateStoredSession(now, expiresAt time.Time, revoked bool) error {
	if revoked {
		return fmt.Errorf("session revoked")
	}
	if !now.Before(expiresAt) {
		return fmt.Errorf("session expired")
	}
	return nil
}
