package tags

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Service orchestrates validation and persistence for tags.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a Service with the provided repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create validates and persists a new tag.
func (s *Service) Create(ctx context.Context, name string) (Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Tag{}, &ValidationError{Message: "name is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return Tag{}, &ValidationError{Message: fmt.Sprintf("name must be at most %d characters", MaxNameLength)}
	}

	return s.repo.Create(ctx, Tag{Name: name, CreatedAt: s.now().UTC()})
}

// List searches tags by name. limit must be between 1 and MaxLimit; zero selects DefaultLimit.
func (s *Service) List(ctx context.Context, query string, limit int) ([]Tag, error) {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, &ValidationError{Message: fmt.Sprintf("limit must be between 1 and %d", MaxLimit)}
	}

	result, err := s.repo.Search(ctx, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search tags: %w", err)
	}
	if result == nil {
		result = []Tag{}
	}
	return result, nil
}
