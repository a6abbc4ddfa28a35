package repost

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountCacheServesWithinTTL(t *testing.T) {
	cache := newCountCache(time.Minute)
	ctx := context.Background()

	var calls int32
	load := func(ctx context.Context) (int64, error) {
		atomic.AddInt32(&calls, 1)
		return 7, nil
	}

	for i := 0; i < 3; i++ {
		count, err := cache.get(ctx, "a|ref", load)
		require.NoError(t, err)
		assert.EqualValues(t, 7, count)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCountCacheKeysAreIndependent(t *testing.T) {
	cache := newCountCache(time.Minute)
	ctx := context.Background()

	var calls int32
	load := func(ctx context.Context) (int64, error) {
		return int64(atomic.AddInt32(&calls, 1)), nil
	}

	first, err := cache.get(ctx, "a|one", load)
	require.NoError(t, err)
	second, err := cache.get(ctx, "a|two", load)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCountCacheExpiry(t *testing.T) {
	cache := newCountCache(20 * time.Millisecond)
	ctx := context.Background()

	var calls int32
	load := func(ctx context.Context) (int64, error) {
		atomic.AddInt32(&calls, 1)
		return 7, nil
	}

	_, err := cache.get(ctx, "a|ref", load)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = cache.get(ctx, "a|ref", load)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestCountCacheInvalidate(t *testing.T) {
	cache := newCountCache(time.Minute)
	ctx := context.Background()

	var calls int32
	load := func(ctx context.Context) (int64, error) {
		atomic.AddInt32(&calls, 1)
		return 7, nil
	}

	_, err := cache.get(ctx, "a|ref", load)
	require.NoError(t, err)

	cache.invalidate("a|ref")

	_, err = cache.get(ctx, "a|ref", load)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestCountCacheLoadErrorNotCached(t *testing.T) {
	cache := newCountCache(time.Minute)
	ctx := context.Background()

	var calls int32
	load := func(ctx context.Context) (int64, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return 0, errors.New("all relays down")
		}
		return 7, nil
	}

	_, err := cache.get(ctx, "a|ref", load)
	require.Error(t, err)

	count, err := cache.get(ctx, "a|ref", load)
	require.NoError(t, err)
	assert.EqualValues(t, 7, count)
}
