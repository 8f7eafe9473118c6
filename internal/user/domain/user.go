package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// User is an account, independent of any organization.
type User struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
	Bio       string
	Phone     string
	Timezone  string
	Locale    string
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserStatus string

const (
	UserStatusActive      UserStatus = "active"
	UserStatusDeactivated UserStatus = "deactivated"
)

// NormalizeEmail lowercases and trims an address for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ErrInvalidEmail is returned for addresses that are not a bare addr-spec.
var ErrInvalidEmail = errors.New("email is invalid")

// ValidateEmail accepts a bare address such as "a@example.com" and rejects
// display-name forms and anything without a domain.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrInvalidEmail
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return ErrInvalidEmail
	}
	return nil
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}
	if u.Locale == "" {
		u.Locale = "en"
	}
	return nil
}

// IsActive reports whether the account may sign in and join organizations.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
