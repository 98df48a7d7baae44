package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Role determines what a user may administer.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Provider identifies how an account authenticates.
type Provider string

const (
	ProviderCustom Provider = "custom"
	ProviderGoogle Provider = "google"
)

// User represents an account in the system. Password and the action-token
// fields are never serialized; external representations go through Sanitize.
type User struct {
	ID       string   `json:"id"`
	Fullname string   `json:"fullname"`
	Email    string   `json:"email"`
	Password string   `json:"-"` // bcrypt hash; empty for federated accounts
	Avatar   string   `json:"avatar"`
	Role     Role     `json:"role"`
	Provider Provider `json:"provider"`

	IsVerified bool `json:"is_verified"`

	VerificationTokenHash   string     `json:"-"`
	VerificationTokenExpiry *time.Time `json:"-"`
	ResetTokenHash          string     `json:"-"`
	ResetTokenExpiry        *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SafeUser is the subset of User fields safe to return externally.
type SafeUser struct {
	ID         string   `json:"id"`
	Fullname   string   `json:"fullname"`
	Email      string   `json:"email"`
	Avatar     string   `json:"avatar"`
	Role       Role     `json:"role"`
	Provider   Provider `json:"provider"`
	IsVerified bool     `json:"isVerified"`
}

// Sanitize strips the password hash and all token fields. Every outbound
// user payload must pass through this.
func (u *User) Sanitize() SafeUser {
	return SafeUser{
		ID:         u.ID,
		Fullname:   u.Fullname,
		Email:      u.Email,
		Avatar:     u.Avatar,
		Role:       u.Role,
		Provider:   u.Provider,
		IsVerified: u.IsVerified,
	}
}

// NewUser builds an unverified custom-provider user with a hashed password.
// The email is normalized so it uniquely identifies the account.
func NewUser(fullname, email, password string) (*User, error) {
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &User{
		ID:        uuid.NewString(),
		Fullname:  fullname,
		Email:     NormalizeEmail(email),
		Password:  hashed,
		Role:      RoleUser,
		Provider:  ProviderCustom,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewGoogleUser builds a federated user. Google accounts carry no password
// and are verified at creation.
func NewGoogleUser(fullname, email, avatar string) *User {
	now := time.Now().UTC()
	return &User{
		ID:         uuid.NewString(),
		Fullname:   fullname,
		Email:      NormalizeEmail(email),
		Avatar:     avatar,
		Role:       RoleUser,
		Provider:   ProviderGoogle,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NormalizeEmail trims and lowercases so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword produces an irreversible salted hash. Plaintext is never
// persisted or logged.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword compares in constant time and only ever reports a boolean.
func (u *User) VerifyPassword(password string) bool {
	if u.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}
