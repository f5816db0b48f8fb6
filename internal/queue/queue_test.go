package queue

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinHeapOrder(t *testing.T) {
	pq := NewMin(8)
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 100; i++ {
		pq.Push(uint64(i), r.Float32())
	}

	prev := float32(-1)
	for pq.Len() > 0 {
		item, ok := pq.Pop()
		require.True(t, ok)
		assert.GreaterOrEqual(t, item.Distance, prev)
		prev = item.Distance
	}
}

func TestMaxHeapOrder(t *testing.T) {
	pq := NewMax(8)
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 100; i++ {
		pq.Push(uint64(i), r.Float32())
	}

	prev := float32(2)
	for pq.Len() > 0 {
		item, ok := pq.Pop()
		require.True(t, ok)
		assert.LessOrEqual(t, item.Distance, prev)
		prev = item.Distance
	}
}

func TestTieBreakByInsertionOrder(t *testing.T) {
	pq := NewMin(4)
	pq.Push(7, 1)
	pq.Push(3, 1)
	pq.Push(9, 1)

	first, _ := pq.Pop()
	second, _ := pq.Pop()
	third, _ := pq.Pop()

	assert.Equal(t, uint64(7), first.Node)
	assert.Equal(t, uint64(3), second.Node)
	assert.Equal(t, uint64(9), third.Node)
}

func TestDrainAscending(t *testing.T) {
	for _, newQueue := range []func(int) *PriorityQueue{NewMin, NewMax} {
		pq := newQueue(4)
		pq.Push(1, 0.3)
		pq.Push(2, 0.1)
		pq.Push(3, 0.2)

		items := pq.Drain()
		require.Len(t, items, 3)
		assert.Equal(t, uint64(2), items[0].Node)
		assert.Equal(t, uint64(3), items[1].Node)
		assert.Equal(t, uint64(1), items[2].Node)
		assert.Zero(t, pq.Len())
	}
}

func TestPopEmpty(t *testing.T) {
	pq := NewMin(0)
	_, ok := pq.Pop()
	assert.False(t, ok)
	_, ok = pq.Top()
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	pq := NewMax(2)
	pq.Push(1, 0.5)
	pq.Reset()
	assert.Zero(t, pq.Len())
}
