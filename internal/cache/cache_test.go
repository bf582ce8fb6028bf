package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheGetSet(t *testing.T) {
	c := New(8, DefaultTTL)

	_, ok := c.Get(PowerOnHours, "7PG3KX9R")
	assert.False(t, ok)

	c.Set(PowerOnHours, "7PG3KX9R", "13796")
	v, ok := c.Get(PowerOnHours, "7PG3KX9R")
	assert.True(t, ok)
	assert.Equal(t, "13796", v)

	// namespaces don't collide
	_, ok = c.Get(Temperature, "7PG3KX9R")
	assert.False(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestCacheEmptySerial(t *testing.T) {
	c := New(8, DefaultTTL)
	c.Set(Temperature, "", "39 C")
	_, ok := c.Get(Temperature, "")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheNil(t *testing.T) {
	var c *Cache
	c.Set(Temperature, "x", "39 C")
	_, ok := c.Get(Temperature, "x")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheExpiry(t *testing.T) {
	c := New(8, 20*time.Millisecond)
	c.Set(Temperature, "x", "39 C")
	assert.Eventually(t, func() bool {
		_, ok := c.Get(Temperature, "x")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestCacheEvictsOldest(t *testing.T) {
	c := New(2, DefaultTTL)
	c.Set(Temperature, "a", "1 C")
	c.Set(Temperature, "b", "2 C")
	c.Set(Temperature, "c", "3 C")

	_, ok := c.Get(Temperature, "a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}
