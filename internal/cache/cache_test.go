package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, time.Minute)
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestExpiredEntryEvictedOnRead(t *testing.T) {
	c := NewTTLCache[string, string]()

	c.Set("k", "v", time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache[string, string]()

	c.Set("k", "v", 0)
	time.Sleep(5 * time.Millisecond)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestSetReplacesAndDeleteRemoves(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("k", 1, time.Minute)
	c.Set("k", 2, time.Minute)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, got)

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}
