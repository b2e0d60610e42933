package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniqiita/internal/users"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(8, time.Minute)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, users.ErrCacheMiss)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Second))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, store.Delete(ctx, "k", "other"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, users.ErrCacheMiss)
}

func TestLocalStoreEvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(2, time.Minute)

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, store.Set(ctx, "c", []byte("3"), 0))

	assert.Equal(t, 2, store.Len())
	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, users.ErrCacheMiss)
}

func TestLocalStoreBacksCachedRepository(t *testing.T) {
	ctx := context.Background()
	repo := users.NewInMemoryRepository([]users.User{{ID: 7, Email: "c@example.ac.jp", Name: "Cached", Role: users.RoleStudent}})
	store := NewLocalStore(4, time.Minute)
	cached := users.NewCachedRepository(repo, store, time.Minute, nil)

	first, err := cached.FindByID(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, cached.SetRole(ctx, 7, users.RoleAdmin))
	assert.Equal(t, 0, store.Len())

	again, err := cached.FindByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, users.RoleAdmin, again.Role)
}
