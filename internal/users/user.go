package users

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a user cannot be located.
var ErrNotFound = errors.New("user not found")

// ErrEmailTaken is returned by repositories when the email is already bound to another user.
var ErrEmailTaken = errors.New("email already registered")

// ErrValidation is returned when input validation fails.
var ErrValidation = errors.New("validation error")

// ValidationError wraps a validation message so callers can distinguish
// client errors from internal failures.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Role is the moderation level of a user.
type Role string

const (
	RoleStudent   Role = "student"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ParseRole validates a role name. "mod" is accepted as an alias for moderator.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleModerator, "mod":
		return RoleModerator, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", &ValidationError{Message: fmt.Sprintf("invalid role %q", raw)}
	}
}

// User is the local account bound to an identity-provider email.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatar"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile carries the display fields supplied by the identity provider.
type Profile struct {
	Email     string
	Name      string
	AvatarURL *string
}

// PlaceholderEmail returns the synthetic email used when a user has to be recreated from a bare id.
func PlaceholderEmail(id int64) string {
	return fmt.Sprintf("user%d@local", id)
}

func sameAvatar(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
