package users

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"
)

// ErrCacheMiss is returned by Cache implementations when a key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the key/value store CachedRepository reads through.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedRepository caches id lookups in front of another Repository.
// Session resolution hits FindByID on every authenticated request.
type CachedRepository struct {
	next   Repository
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedRepository wraps next with a read-through cache.
func NewCachedRepository(next Repository, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRepository{next: next, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(id int64) string {
	return "uniqiita:user:" + strconv.FormatInt(id, 10)
}

// FindByID serves from cache when possible. Cache failures fall through to the wrapped repository.
func (r *CachedRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	key := cacheKey(id)
	raw, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var user User
		if jsonErr := json.Unmarshal(raw, &user); jsonErr == nil {
			return &user, nil
		}
		r.logger.Warn("discarding undecodable cached user", "user_id", id)
	case !errors.Is(err, ErrCacheMiss):
		r.logger.Warn("user cache read failed", "user_id", id, "error", err)
	}

	user, err := r.next.FindByID(ctx, id)
	if err != nil || user == nil {
		return user, err
	}
	r.store(ctx, user)
	return user, nil
}

// FindByEmail is not cached.
func (r *CachedRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.next.FindByEmail(ctx, email)
}

// Create inserts a new user. Fresh ids are never cached, so nothing is evicted.
func (r *CachedRepository) Create(ctx context.Context, user User) (User, error) {
	return r.next.Create(ctx, user)
}

// CreateWithID inserts a placeholder under a known id and evicts any stale entry for it.
func (r *CachedRepository) CreateWithID(ctx context.Context, user User) (User, error) {
	created, err := r.next.CreateWithID(ctx, user)
	if err != nil {
		return User{}, err
	}
	r.invalidate(ctx, created.ID)
	return created, nil
}

// UpdateDisplayFields refreshes name and avatar, then evicts the cached entry.
func (r *CachedRepository) UpdateDisplayFields(ctx context.Context, id int64, name string, avatarURL *string) error {
	if err := r.next.UpdateDisplayFields(ctx, id, name, avatarURL); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// SetRole changes the role, then evicts the cached entry.
func (r *CachedRepository) SetRole(ctx context.Context, id int64, role Role) error {
	if err := r.next.SetRole(ctx, id, role); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedRepository) store(ctx context.Context, user *User) {
	payload, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(user.ID), payload, r.ttl); err != nil {
		r.logger.Warn("user cache write failed", "user_id", user.ID, "error", err)
	}
}

func (r *CachedRepository) invalidate(ctx context.Context, id int64) {
	if err := r.cache.Delete(ctx, cacheKey(id)); err != nil {
		r.logger.Warn("user cache invalidation failed", "user_id", id, "error", err)
	}
}
