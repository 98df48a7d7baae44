package auth

import (
	"regexp"
	"unicode"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks if an email is valid.
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email) && len(email) < 255
}

// ValidateFullname checks the display-name length bounds.
func ValidateFullname(fullname string) bool {
	return len(fullname) >= 6 && len(fullname) <= 50
}

// ValidatePassword checks if a password meets the complexity policy: at
// least one uppercase letter, one lowercase letter, one number and one
// special character.
func ValidatePassword(password string) bool {
	if len(password) < 6 || len(password) > 72 {
		return false
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}

// Request schemas. Each operation gets a statically validated type rejected
// before it reaches business logic.

type RegisterRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate() *Error {
	if !ValidateFullname(r.Fullname) {
		return newError(CodeInvalidArgument, "Fullname must be between 6 and 50 characters")
	}
	if !ValidateEmail(r.Email) {
		return newError(CodeInvalidArgument, "Invalid email address")
	}
	if !ValidatePassword(r.Password) {
		return newError(CodeInvalidArgument, "Password must contain at least one uppercase letter, one lowercase letter, one number and one special character")
	}
	return nil
}

type LoginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	KeepSignedIn bool   `json:"keepSignedIn"`
}

func (r *LoginRequest) Validate() *Error {
	if !ValidateEmail(r.Email) {
		return newError(CodeInvalidArgument, "Invalid email address")
	}
	if r.Password == "" {
		return newError(CodeInvalidArgument, "Password is required")
	}
	return nil
}

type EmailRequest struct {
	Email string `json:"email"`
}

func (r *EmailRequest) Validate() *Error {
	if !ValidateEmail(r.Email) {
		return newError(CodeInvalidArgument, "Invalid email address")
	}
	return nil
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r *ResetPasswordRequest) Validate() *Error {
	if !ValidatePassword(r.Password) {
		return newError(CodeInvalidArgument, "Password must contain at least one uppercase letter, one lowercase letter, one number and one special character")
	}
	if r.ConfirmPassword != r.Password {
		return newError(CodeInvalidArgument, "Confirm password must match the new password")
	}
	return nil
}

type GoogleLoginRequest struct {
	Token        string `json:"token"`
	KeepSignedIn bool   `json:"keepSignedIn"`
}

func (r *GoogleLoginRequest) Validate() *Error {
	if r.Token == "" {
		return newError(CodeInvalidArgument, "Google token not found")
	}
	return nil
}

type UpdateRoleRequest struct {
	Role Role `json:"role"`
}

func (r *UpdateRoleRequest) Validate() *Error {
	if r.Role != RoleUser && r.Role != RoleAdmin {
		return newError(CodeInvalidArgument, "Invalid role")
	}
	return nil
}
