package excluded

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddRemoveContains(t *testing.T) {
	s := New()

	assert.False(t, s.Contains(7))
	s.Add(7)
	assert.True(t, s.Contains(7))
	assert.Equal(t, 1, s.Len())

	s.Remove(7)
	assert.False(t, s.Contains(7))
	assert.Zero(t, s.Len())
}

func TestConcurrentMembership(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(base uint64) {
			defer wg.Done()
			for i := uint64(0); i < 1000; i++ {
				id := base*1000 + i
				s.Add(id)
				if !s.Contains(id) {
					t.Errorf("id %d missing while in flight", id)
				}
				s.Remove(id)
			}
		}(uint64(g))
	}
	wg.Wait()

	assert.Zero(t, s.Len())
}
