package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"uniqiita/internal/users"
)

const defaultLocalSize = 1024

// LocalStore is a bounded in-process cache used when Redis is not configured.
// Entries expire after the TTL given at construction; per-call TTLs are ignored.
type LocalStore struct {
	lru *expirable.LRU[string, []byte]
}

// NewLocalStore returns a LocalStore holding at most size entries.
func NewLocalStore(size int, ttl time.Duration) *LocalStore {
	if size <= 0 {
		size = defaultLocalSize
	}
	return &LocalStore{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := s.lru.Get(key)
	if !ok {
		return nil, users.ErrCacheMiss
	}
	return val, nil
}

func (s *LocalStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.lru.Add(key, append([]byte(nil), value...))
	return nil
}

func (s *LocalStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.lru.Remove(key)
	}
	return nil
}

// Len reports the number of live entries.
func (s *LocalStore) Len() int {
	return s.lru.Len()
}

var _ users.Cache = (*LocalStore)(nil)
