package user

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Session is a server-side login session. Only the SHA-256 hash of the
// bearer token is stored, so a leaked sessions table cannot be replayed.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// HashToken returns the hex SHA-256 digest of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
