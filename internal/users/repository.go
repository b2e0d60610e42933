package users

import "context"

// Repository defines the interface for user persistence.
//
// Finders return (nil, nil) when no user matches.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Create assigns a fresh id.
	Create(ctx context.Context, user User) (User, error)
	// CreateWithID keeps user.ID as given.
	CreateWithID(ctx context.Context, user User) (User, error)
	UpdateDisplayFields(ctx context.Context, id int64, name string, avatarURL *string) error
	SetRole(ctx context.Context, id int64, role Role) error
}
