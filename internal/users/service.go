package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultDisplayName     = "Unknown"
	placeholderDisplayName = "User"
)

// Service owns the create-or-refresh rules for local user records.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a Service with the provided repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// UpsertByEmail returns the user bound to profile.Email, creating it as a
// student when absent. Existing users only get their display fields
// refreshed; the role is never touched here.
func (s *Service) UpsertByEmail(ctx context.Context, profile Profile) (*User, error) {
	email := normalizeEmail(profile.Email)
	if email == "" {
		return nil, &ValidationError{Message: "email is required"}
	}
	name := strings.TrimSpace(profile.Name)

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if existing == nil {
		if name == "" {
			name = defaultDisplayName
		}
		created, err := s.repo.Create(ctx, User{
			Email:     email,
			Name:      name,
			AvatarURL: profile.AvatarURL,
			Role:      RoleStudent,
			CreatedAt: s.now().UTC(),
		})
		if errors.Is(err, ErrEmailTaken) {
			// Lost a race with a concurrent first login for the same email.
			existing, err = s.repo.FindByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("find user: %w", err)
			}
			if existing == nil {
				return nil, fmt.Errorf("create user: %w", ErrEmailTaken)
			}
			return s.refreshDisplay(ctx, existing, name, profile.AvatarURL)
		}
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &created, nil
	}

	return s.refreshDisplay(ctx, existing, name, profile.AvatarURL)
}

func (s *Service) refreshDisplay(ctx context.Context, user *User, name string, avatarURL *string) (*User, error) {
	changed := false
	if name != "" && user.Name != name {
		user.Name = name
		changed = true
	}
	if avatarURL != nil && !sameAvatar(user.AvatarURL, avatarURL) {
		avatar := *avatarURL
		user.AvatarURL = &avatar
		changed = true
	}
	if !changed {
		return user, nil
	}

	if err := s.repo.UpdateDisplayFields(ctx, user.ID, user.Name, user.AvatarURL); err != nil {
		return nil, fmt.Errorf("update user display fields: %w", err)
	}
	return user, nil
}

// EnsureByID returns the user with the given id, recreating a minimal
// placeholder bound to that id when the record has disappeared.
func (s *Service) EnsureByID(ctx context.Context, id int64) (*User, error) {
	if id <= 0 {
		return nil, &ValidationError{Message: "user id must be positive"}
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	created, err := s.repo.CreateWithID(ctx, User{
		ID:        id,
		Email:     PlaceholderEmail(id),
		Name:      placeholderDisplayName,
		Role:      RoleStudent,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("recreate user %d: %w", id, err)
	}
	return &created, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// FindByEmail returns the user bound to email.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// SetRole applies an administrative role change.
func (s *Service) SetRole(ctx context.Context, id int64, role Role) (*User, error) {
	parsed, err := ParseRole(string(role))
	if err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == parsed {
		return user, nil
	}

	if err := s.repo.SetRole(ctx, id, parsed); err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	user.Role = parsed
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
