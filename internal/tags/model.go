package tags

import (
	"errors"
	"time"
)

// ErrDuplicate is returned when a tag with the same name already exists.
var ErrDuplicate = errors.New("tag already exists")

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

// Tag labels articles by topic.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	MaxNameLength = 50
	DefaultLimit  = 20
	MaxLimit      = 100
)
