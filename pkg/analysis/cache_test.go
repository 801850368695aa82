package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_Deterministic(t *testing.T) {
	a := CacheKey(OpAnalyzeFeedback, "gpt-4o-mini", "The WiFi is down", "false")
	b := CacheKey(OpAnalyzeFeedback, "gpt-4o-mini", "The WiFi is down", "false")
	assert.Equal(t, a, b)
}

func TestCacheKey_NormalizesWhitespaceAndCase(t *testing.T) {
	a := CacheKey(OpAnalyzeFeedback, "m", "The  WiFi   is down")
	b := CacheKey(OpAnalyzeFeedback, "m", "  the wifi is DOWN ")
	assert.Equal(t, a, b)
}

func TestCacheKey_SensitiveToInputs(t *testing.T) {
	base := CacheKey(OpAnalyzeFeedback, "m", "body", "false")

	assert.NotEqual(t, base, CacheKey(OpSuggestTopicName, "m", "body", "false"), "operation kind must vary the key")
	assert.NotEqual(t, base, CacheKey(OpAnalyzeFeedback, "other-model", "body", "false"), "model must vary the key")
	assert.NotEqual(t, base, CacheKey(OpAnalyzeFeedback, "m", "other body", "false"), "body must vary the key")
	assert.NotEqual(t, base, CacheKey(OpAnalyzeFeedback, "m", "body", "true"), "feedback type must vary the key")
}

func TestCacheKey_SummaryInvalidation(t *testing.T) {
	ts1 := time.Now()
	ts2 := ts1.Add(time.Minute)

	// Same aggregate, new contribution: count or timestamp change flips the key.
	a := CacheKey(OpGenerateSummary, "m", "Topic", "10", timeKey(ts1))
	b := CacheKey(OpGenerateSummary, "m", "Topic", "11", timeKey(ts1))
	c := CacheKey(OpGenerateSummary, "m", "Topic", "10", timeKey(ts2))
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func timeKey(ts time.Time) string {
	return time.Time.Format(ts, time.RFC3339Nano)
}

func TestMemoryCache_SetGet(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	_, hit, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "key", "value", time.Minute))

	val, hit, err := cache.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "value", val)
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc := &memoryCache{entries: make(map[string]memoryCacheEntry)}
	current := time.Now()
	mc.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "key", "value", time.Hour))

	current = current.Add(30 * time.Minute)
	_, hit, err := mc.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, hit)

	current = current.Add(31 * time.Minute)
	_, hit, err = mc.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, hit, "entry past its TTL must not be returned")
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			key := CacheKey(OpAnalyzeFeedback, "m", "body", string(rune('a'+n)))
			for j := 0; j < 100; j++ {
				_ = cache.Set(ctx, key, "v", time.Minute)
				_, _, _ = cache.Get(ctx, key)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
