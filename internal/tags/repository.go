package tags

import "context"

// Repository defines the interface for tag persistence.
type Repository interface {
	// Create returns ErrDuplicate when the name is taken.
	Create(ctx context.Context, tag Tag) (Tag, error)
	// Search returns tags whose name contains query case-insensitively,
	// newest first. An empty query matches everything.
	Search(ctx context.Context, query string, limit int) ([]Tag, error)
}
