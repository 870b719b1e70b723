package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingRecorder struct {
	hits, misses atomic.Int32
}

func (r *countingRecorder) CacheHit()  { r.hits.Add(1) }
func (r *countingRecorder) CacheMiss() { r.misses.Add(1) }

func setupTestCache(t *testing.T, opts ...Option) (*miniredis.Miniredis, *TokenCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	return mr, New(client, opts...)
}

func TestTokenCache_SetAndGet(t *testing.T) {
	rec := &countingRecorder{}
	mr, c := setupTestCache(t, WithTTL(time.Minute), WithRecorder(rec))
	ctx := context.Background()

	_, ok := c.Get(ctx, "cut", "中文测试")
	assert.False(t, ok)

	c.Set(ctx, "cut", "中文测试", []string{"中文", "测", "试"})
	got, ok := c.Get(ctx, "cut", "中文测试")
	require.True(t, ok)
	assert.Equal(t, []string{"中文", "测", "试"}, got)

	_, ok = c.Get(ctx, "search", "中文测试")
	assert.False(t, ok, "modes are cached separately")

	key := buildKey("cut", "中文测试")
	assert.True(t, strings.HasPrefix(key, "freqseg:cut:"))
	assert.Equal(t, time.Minute, mr.TTL(key))

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
	assert.Equal(t, int32(1), rec.hits.Load())
	assert.Equal(t, int32(2), rec.misses.Load())
}

func TestTokenCache_GetOrCompute(t *testing.T) {
	rec := &countingRecorder{}
	_, c := setupTestCache(t, WithRecorder(rec))
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) ([]string, error) {
		calls++
		return []string{"ab12"}, nil
	}

	got, hit, err := c.GetOrCompute(ctx, "cut", "ab12", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"ab12"}, got)

	got, hit, err = c.GetOrCompute(ctx, "cut", "ab12", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"ab12"}, got)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses, "a computed request is one miss")
	assert.Equal(t, int32(1), rec.hits.Load())
	assert.Equal(t, int32(1), rec.misses.Load())
}

func TestTokenCache_GetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"中文"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _, err := c.GetOrCompute(ctx, "cut", "中文", compute)
			assert.NoError(t, err)
			assert.Equal(t, []string{"中文"}, got)
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenCache_ComputeError(t *testing.T) {
	_, c := setupTestCache(t)
	boom := errors.New("dictionary unavailable")

	_, _, err := c.GetOrCompute(context.Background(), "cut", "x", func(context.Context) ([]string, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get(context.Background(), "cut", "x")
	assert.False(t, ok, "errors are not cached")
}

func TestTokenCache_RedisDownFallsThrough(t *testing.T) {
	mr, c := setupTestCache(t)
	mr.Close()

	got, hit, err := c.GetOrCompute(context.Background(), "cut", "ab", func(context.Context) ([]string, error) {
		return []string{"ab"}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"ab"}, got)
	assert.Error(t, c.Ping(context.Background()))
}

func TestTokenCache_CorruptValueIsMiss(t *testing.T) {
	mr, c := setupTestCache(t)
	require.NoError(t, mr.Set(buildKey("cut", "x"), "not json"))

	_, ok := c.Get(context.Background(), "cut", "x")
	assert.False(t, ok)
}

func TestTokenCache_Invalidate(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()
	c.Set(ctx, "cut", "a", []string{"a"})
	c.Set(ctx, "search", "b", []string{"b"})
	require.NoError(t, mr.Set("other:key", "keep"))

	deleted, err := c.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.True(t, mr.Exists("other:key"))
	_, ok := c.Get(ctx, "cut", "a")
	assert.False(t, ok)
}
