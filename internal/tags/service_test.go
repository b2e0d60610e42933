package tags

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(repo Repository) *Service {
	svc := NewService(repo)
	tick := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	return svc
}

func TestCreateTrimsName(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(nil))

	tag, err := svc.Create(context.Background(), "  Python  ")

	require.NoError(t, err)
	assert.Equal(t, "Python", tag.Name)
	assert.NotZero(t, tag.ID)
	assert.False(t, tag.CreatedAt.IsZero())
}

func TestCreateValidatesName(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(nil))

	_, err := svc.Create(context.Background(), "   ")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.Create(context.Background(), strings.Repeat("a", MaxNameLength+1))
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.Create(context.Background(), strings.Repeat("離", MaxNameLength))
	assert.NoError(t, err)
}

func TestCreateRejectsDuplicate(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(nil))
	ctx := context.Background()

	_, err := svc.Create(ctx, "Go")
	require.NoError(t, err)

	_, err = svc.Create(ctx, " Go ")
	assert.True(t, errors.Is(err, ErrDuplicate))
}

func TestListSearchesNewestFirst(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(nil))
	ctx := context.Background()
	for _, name := range []string{"Python", "Go", "pytest", "離散数学"} {
		_, err := svc.Create(ctx, name)
		require.NoError(t, err)
	}

	result, err := svc.List(ctx, "PY", 0)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "pytest", result[0].Name)
	assert.Equal(t, "Python", result[1].Name)

	all, err := svc.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "離散数学", all[0].Name)
}

func TestListAppliesLimit(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(nil))
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, name)
		require.NoError(t, err)
	}

	result, err := svc.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, result, 2)

	_, err = svc.List(ctx, "", MaxLimit+1)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.List(ctx, "", -1)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestListReturnsEmptySlice(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(nil))

	result, err := svc.List(context.Background(), "nothing", 5)
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_done\\`, escapeLike(`100%_done\`))
}
