package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenClaims represents the claims carried by access and refresh tokens.
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager mints and verifies the three token families. Access and
// refresh tokens are signed JWTs with independent secrets; action tokens are
// random opaque strings whose hash is persisted on the user record.
type TokenManager struct {
	accessSecret       []byte
	refreshSecret      []byte
	accessTTL          time.Duration
	refreshTTL         time.Duration
	refreshTTLExtended time.Duration
	actionTTL          time.Duration
}

// NewTokenManager creates a new TokenManager.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL, refreshTTLExtended, actionTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:       []byte(accessSecret),
		refreshSecret:      []byte(refreshSecret),
		accessTTL:          accessTTL,
		refreshTTL:         refreshTTL,
		refreshTTLExtended: refreshTTLExtended,
		actionTTL:          actionTTL,
	}
}

// RefreshTTL returns the refresh-token lifetime, extended when the user asked
// to stay signed in. Cookie max-age derives from the same value.
func (tm *TokenManager) RefreshTTL(keepSignedIn bool) time.Duration {
	if keepSignedIn {
		return tm.refreshTTLExtended
	}
	return tm.refreshTTL
}

// AccessTTL returns the access-token lifetime.
func (tm *TokenManager) AccessTTL() time.Duration {
	return tm.accessTTL
}

// GenerateAccessToken creates a short-lived stateless access token.
func (tm *TokenManager) GenerateAccessToken(user *User) (string, error) {
	return tm.sign(user, tm.accessSecret, tm.accessTTL)
}

// GenerateRefreshToken creates a refresh token. The caller must persist its
// hash in the session registry before returning it to the client.
func (tm *TokenManager) GenerateRefreshToken(user *User, keepSignedIn bool) (string, error) {
	return tm.sign(user, tm.refreshSecret, tm.RefreshTTL(keepSignedIn))
}

func (tm *TokenManager) sign(user *User, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyAccessToken validates signature and expiry only; access tokens are
// never looked up in storage.
func (tm *TokenManager) VerifyAccessToken(tokenString string) (*TokenClaims, error) {
	return tm.verify(tokenString, tm.accessSecret)
}

// VerifyRefreshToken validates signature and expiry. A passing token is only
// usable if its hash also matches a live session row; that check belongs to
// the caller.
func (tm *TokenManager) VerifyRefreshToken(tokenString string) (*TokenClaims, error) {
	return tm.verify(tokenString, tm.refreshSecret)
}

func (tm *TokenManager) verify(tokenString string, secret []byte) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ActionToken is a single-use, time-boxed secret for email verification or
// password reset. Raw is returned to the caller exactly once; only Hash and
// Expiry are persisted.
type ActionToken struct {
	Raw    string
	Hash   string
	Expiry time.Time
}

// GenerateActionToken creates a fresh action token.
func (tm *TokenManager) GenerateActionToken() (*ActionToken, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	raw := hex.EncodeToString(b)
	return &ActionToken{
		Raw:    raw,
		Hash:   HashToken(raw),
		Expiry: time.Now().UTC().Add(tm.actionTTL),
	}, nil
}

// HashToken digests a token for persisted comparison. A fast deterministic
// hash is enough here: the inputs are already high-entropy, so the stored
// value only defends against database leakage.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
