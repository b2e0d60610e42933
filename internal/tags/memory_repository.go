package tags

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemoryRepository stores tags in process memory.
type InMemoryRepository struct {
	mu     sync.RWMutex
	tags   []Tag
	nextID int64
}

// NewInMemoryRepository constructs a repository seeded with optional initial tags.
func NewInMemoryRepository(initial []Tag) *InMemoryRepository {
	r := &InMemoryRepository{nextID: 1}
	for _, tag := range initial {
		r.tags = append(r.tags, tag)
		if tag.ID >= r.nextID {
			r.nextID = tag.ID + 1
		}
	}
	return r
}

// Create stores tag under the next free id.
func (r *InMemoryRepository) Create(_ context.Context, tag Tag) (Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.tags {
		if existing.Name == tag.Name {
			return Tag{}, ErrDuplicate
		}
	}
	tag.ID = r.nextID
	r.nextID++
	r.tags = append(r.tags, tag)
	return tag, nil
}

// Search filters by case-insensitive substring, newest first.
func (r *InMemoryRepository) Search(_ context.Context, query string, limit int) ([]Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(query)
	matches := make([]Tag, 0, len(r.tags))
	for _, tag := range r.tags {
		if needle == "" || strings.Contains(strings.ToLower(tag.Name), needle) {
			matches = append(matches, tag)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
