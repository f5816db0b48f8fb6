// Package excluded tracks the vertices whose insertion is in flight.
// Concurrent inserters skip excluded vertices when selecting neighbors, so
// nobody links into a half-built neighborhood.
package excluded

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Set is a process-wide concurrent set of vertex identities. The mutex is
// held only for membership operations, never across other lock acquisitions.
type Set struct {
	mu  sync.Mutex
	ids *roaring64.Bitmap
}

// New creates an empty excluded-candidate set.
func New() *Set {
	return &Set{ids: roaring64.New()}
}

// Add marks a vertex as being inserted.
func (s *Set) Add(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids.Add(id)
}

// Remove clears the in-flight mark for a vertex.
func (s *Set) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids.Remove(id)
}

// Contains reports whether the vertex is currently being inserted.
func (s *Set) Contains(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids.Contains(id)
}

// Len returns the number of in-flight insertions.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.ids.GetCardinality())
}
