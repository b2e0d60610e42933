package users

import (
	"context"
	"slices"
	"sync"
)

// InMemoryRepository stores users in an in-process map, ideal for local development or tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	data    map[int64]User
	byEmail map[string]int64
	nextID  int64
}

// NewInMemoryRepository constructs a repository seeded with optional initial users.
func NewInMemoryRepository(initial []User) *InMemoryRepository {
	r := &InMemoryRepository{
		data:    make(map[int64]User, len(initial)),
		byEmail: make(map[string]int64, len(initial)),
		nextID:  1,
	}
	for _, user := range initial {
		r.store(user)
	}
	return r
}

func (r *InMemoryRepository) store(user User) {
	r.data[user.ID] = user
	r.byEmail[user.Email] = user.ID
	if user.ID >= r.nextID {
		r.nextID = user.ID + 1
	}
}

// FindByID returns the user with the given id.
func (r *InMemoryRepository) FindByID(_ context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.data[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(user), nil
}

// FindByEmail returns the user bound to email.
func (r *InMemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	return cloneUser(r.data[id]), nil
}

// Create stores a new user under the next free id.
func (r *InMemoryRepository) Create(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return User{}, ErrEmailTaken
	}
	user.ID = r.nextID
	r.store(user)
	return *cloneUser(user), nil
}

// CreateWithID stores a user under its own id.
func (r *InMemoryRepository) CreateWithID(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.data[user.ID]; ok {
		return *cloneUser(existing), nil
	}
	if _, taken := r.byEmail[user.Email]; taken {
		return User{}, ErrEmailTaken
	}
	r.store(user)
	return *cloneUser(user), nil
}

// UpdateDisplayFields refreshes name and avatar.
func (r *InMemoryRepository) UpdateDisplayFields(_ context.Context, id int64, name string, avatarURL *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	user.Name = name
	user.AvatarURL = copyString(avatarURL)
	r.data[id] = user
	return nil
}

// SetRole replaces the user's role.
func (r *InMemoryRepository) SetRole(_ context.Context, id int64, role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	user.Role = role
	r.data[id] = user
	return nil
}

// IDsMatchingEmail returns the ids of users whose email satisfies match, in id order.
func (r *InMemoryRepository) IDsMatchingEmail(_ context.Context, match func(email string) bool) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int64
	for id, user := range r.data {
		if match(user.Email) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Len reports how many users are stored.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

func cloneUser(u User) *User {
	clone := u
	clone.AvatarURL = copyString(u.AvatarURL)
	return &clone
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
