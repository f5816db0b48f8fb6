package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndLookup(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.EnsureUniqueIndex("Vector", "id"))

	id, err := s.CreateVertex("Vector", map[string]any{"id": "a", "vec": []float32{1, 2}})
	require.NoError(t, err)
	assert.NotEqual(t, Nil, id)

	got, err := s.LookupUnique("Vector", "id", "a")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = s.LookupUnique("Vector", "id", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUniqueViolation(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.EnsureUniqueIndex("Vector", "id"))

	_, err := s.CreateVertex("Vector", map[string]any{"id": "a"})
	require.NoError(t, err)

	_, err = s.CreateVertex("Vector", map[string]any{"id": "a"})
	assert.ErrorIs(t, err, ErrUniqueViolation)
}

func TestEnsureUniqueIndexBackfills(t *testing.T) {
	s := NewMemoryStore()

	id, err := s.CreateVertex("Vector", map[string]any{"id": "a"})
	require.NoError(t, err)

	require.NoError(t, s.EnsureUniqueIndex("Vector", "id"))
	require.NoError(t, s.EnsureUniqueIndex("Vector", "id")) // idempotent

	got, err := s.LookupUnique("Vector", "id", "a")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestProperties(t *testing.T) {
	s := NewMemoryStore()
	id, err := s.CreateVertex("Vector", map[string]any{"id": "a"})
	require.NoError(t, err)

	v, err := s.Property(id, "vectorMaxLevel")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.SetProperty(id, "vectorMaxLevel", 3))
	v, err = s.Property(id, "vectorMaxLevel")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = s.Property(Nil, "anything")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEdges(t *testing.T) {
	s := NewMemoryStore()
	a, _ := s.CreateVertex("Vector", nil)
	b, _ := s.CreateVertex("Vector", nil)
	c, _ := s.CreateVertex("Vector", nil)

	require.NoError(t, s.AddEdge(a, b, "vv0"))
	require.NoError(t, s.AddEdge(a, c, "vv0"))

	deg, err := s.OutDegree(a, "vv0")
	require.NoError(t, err)
	assert.Equal(t, 2, deg)

	neighbors, err := s.OutNeighbors(a, "vv0")
	require.NoError(t, err)
	assert.Equal(t, []VertexID{b, c}, neighbors)

	// Edges are directed.
	deg, _ = s.OutDegree(b, "vv0")
	assert.Zero(t, deg)

	require.NoError(t, s.ReplaceOutEdges(a, "vv0", []VertexID{c}))
	neighbors, _ = s.OutNeighbors(a, "vv0")
	assert.Equal(t, []VertexID{c}, neighbors)

	assert.True(t, s.HasEdgeType("vv0"))
}

func TestDeleteVertexRemovesIncidentEdges(t *testing.T) {
	s := NewMemoryStore()
	a, _ := s.CreateVertex("Vector", nil)
	b, _ := s.CreateVertex("Vector", nil)

	require.NoError(t, s.AddEdge(a, b, "vv0"))
	require.NoError(t, s.AddEdge(b, a, "vv0"))

	require.NoError(t, s.DeleteVertex(b))

	neighbors, err := s.OutNeighbors(a, "vv0")
	require.NoError(t, err)
	assert.Empty(t, neighbors)

	_, err = s.OutNeighbors(b, "vv0")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, s.Len())
}

func TestEachVertex(t *testing.T) {
	s := NewMemoryStore()
	s.CreateVertex("Vector", nil)
	s.CreateVertex("Vector", nil)
	s.CreateVertex("Other", nil)

	count := 0
	require.NoError(t, s.EachVertex("Vector", func(VertexID) bool {
		count++
		return true
	}))
	assert.Equal(t, 2, count)

	// Early stop.
	count = 0
	require.NoError(t, s.EachVertex("Vector", func(VertexID) bool {
		count++
		return false
	}))
	assert.Equal(t, 1, count)
}
