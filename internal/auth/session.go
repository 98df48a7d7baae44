package auth

import (
	"time"

	"github.com/google/uuid"
)

// Session is one active device login for a user. The refresh token itself is
// never stored, only its hash; `(UserID, Fingerprint)` is unique so a repeat
// login from the same device updates the existing row.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	Fingerprint      string // user-agent string, the coarse device key
	IPAddress        string
	KeepSignedIn     bool
	ExpiresAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewSession builds an unsaved session row for the given device binding.
func NewSession(userID, fingerprint, ip, tokenHash string, expiresAt time.Time, keepSignedIn bool) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:               uuid.NewString(),
		UserID:           userID,
		RefreshTokenHash: tokenHash,
		Fingerprint:      fingerprint,
		IPAddress:        ip,
		KeepSignedIn:     keepSignedIn,
		ExpiresAt:        expiresAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Expired reports whether the session is past its expiry. There is no
// expired-but-present state; expiry is checked lazily at use time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
