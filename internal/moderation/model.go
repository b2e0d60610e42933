package moderation

import (
	"errors"
	"strings"
	"time"
)

// ErrUserNotFound is returned when the purge target does not exist.
var ErrUserNotFound = errors.New("user not found")

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

// Audit actions.
const (
	ActionPurgeByEmail = "user_purge"
	ActionPurgeDummy   = "dummy_purge"
	ActionSetRole      = "user_set_role"
)

// AuditEntry records an administrative action.
type AuditEntry struct {
	ID         int64          `json:"id"`
	ActorID    *int64         `json:"actor_id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   *int64         `json:"target_id"`
	Meta       map[string]any `json:"meta,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// PurgeResult summarises what a purge removed.
type PurgeResult struct {
	Users    int `json:"users"`
	Articles int `json:"articles"`
}

// DummyEmailPattern is the SQL LIKE pattern that identifies seeded test accounts.
const DummyEmailPattern = "dummy%@%"

// IsDummyEmail reports whether email matches DummyEmailPattern.
func IsDummyEmail(email string) bool {
	at := strings.Index(email, "@")
	return strings.HasPrefix(email, "dummy") && at >= len("dummy")
}
