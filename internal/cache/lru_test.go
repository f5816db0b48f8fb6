package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutGet(t *testing.T) {
	c := NewLRU[string](64)

	c.Put(1, "a")
	c.Put(2, "b")

	v, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = c.Get(3)
	assert.False(t, ok)
}

func TestReplace(t *testing.T) {
	c := NewLRU[string](64)

	c.Put(1, "a")
	c.Put(1, "a2")

	v, _ := c.Get(1)
	assert.Equal(t, "a2", v)
	assert.Equal(t, 1, c.Len())
}

func TestEviction(t *testing.T) {
	c := NewLRU[int](16) // one slot per shard

	// Two keys on the same shard; the older one is evicted.
	c.Put(0, 10)
	c.Put(16, 20)

	_, ok := c.Get(0)
	assert.False(t, ok)

	v, ok := c.Get(16)
	assert.True(t, ok)
	assert.Equal(t, 20, v)
}

func TestRemove(t *testing.T) {
	c := NewLRU[int](64)
	c.Put(5, 1)
	c.Remove(5)

	_, ok := c.Get(5)
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}
