package moderation

import (
	"context"
	"sync"
)

// InMemoryRepository keeps the audit log in memory. The in-memory store
// holds no articles, so purges remove nothing.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries []AuditEntry
	dummies func(ctx context.Context) ([]int64, error)
}

// NewInMemoryRepository constructs an InMemoryRepository. dummies lists the
// seeded test accounts and may be nil.
func NewInMemoryRepository(dummies func(ctx context.Context) ([]int64, error)) *InMemoryRepository {
	return &InMemoryRepository{dummies: dummies}
}

func (r *InMemoryRepository) PurgeUserContent(_ context.Context, _ int64) (int, error) {
	return 0, nil
}

func (r *InMemoryRepository) DummyUserIDs(ctx context.Context) ([]int64, error) {
	if r.dummies == nil {
		return nil, nil
	}
	return r.dummies(ctx)
}

func (r *InMemoryRepository) RecordAudit(_ context.Context, entry AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, entry)
	return nil
}

// Entries returns a copy of the audit log.
func (r *InMemoryRepository) Entries() []AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]AuditEntry(nil), r.entries...)
}
