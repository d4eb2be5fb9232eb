package user

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// tokenBytes is the entropy of generated tokens before encoding.
const tokenBytes = 32

// MagicLink is a single-use, expiring login token sent to a user by email.
type MagicLink struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// Valid reports whether the link can still be redeemed at the given time.
func (m *MagicLink) Valid(now time.Time) bool {
	return !m.Used && now.Before(m.ExpiresAt)
}

// NewToken returns a URL-safe random token.
func NewToken() string {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// MagicLinkRequest is the input for requesting a login link.
type MagicLinkRequest struct {
	Email string `json:"email"`
}
