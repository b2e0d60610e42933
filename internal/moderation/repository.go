package moderation

import "context"

// Repository defines the persistence needed by moderation.
type Repository interface {
	// PurgeUserContent deletes the user's likes, comments and articles
	// (with their tag links, likes and comments). It returns the number of
	// articles removed. The user row itself is kept.
	PurgeUserContent(ctx context.Context, userID int64) (int, error)
	// DummyUserIDs lists users whose email matches DummyEmailPattern.
	DummyUserIDs(ctx context.Context) ([]int64, error)
	RecordAudit(ctx context.Context, entry AuditEntry) error
}
