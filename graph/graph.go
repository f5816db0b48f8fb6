package graph

import "errors"

// VertexID identifies a vertex inside the storage engine. The zero value
// means "no vertex".
type VertexID uint64

// Nil is the absent vertex identity.
const Nil VertexID = 0

var (
	// ErrNotFound is returned when a vertex or index entry does not exist.
	ErrNotFound = errors.New("graph: not found")

	// ErrUniqueViolation is returned when a vertex create would duplicate a
	// key covered by a unique index.
	ErrUniqueViolation = errors.New("graph: unique constraint violation")
)

// Store is the surface the index consumes from a graph storage engine.
// Implementations must be safe for concurrent use. Begin/Commit delimit
// batch transactions during bulk operations; engines without transactional
// semantics may treat them as no-ops.
type Store interface {
	// Begin opens a batch transaction.
	Begin() error

	// Commit closes the current batch transaction.
	Commit() error

	// EnsureVertexType creates the vertex type if it does not exist.
	EnsureVertexType(name string) error

	// EnsureEdgeType creates the edge type if it does not exist.
	EnsureEdgeType(name string) error

	// EnsureUniqueIndex idempotently creates a unique secondary index over
	// (vertexType, property).
	EnsureUniqueIndex(vertexType, property string) error

	// CreateVertex creates a vertex with the given properties. It returns
	// ErrUniqueViolation when a unique index rejects the new entry.
	CreateVertex(vertexType string, props map[string]any) (VertexID, error)

	// Property reads a single vertex property; ErrNotFound when the vertex
	// does not exist, nil value when the property is unset.
	Property(id VertexID, key string) (any, error)

	// SetProperty writes a single vertex property.
	SetProperty(id VertexID, key string, value any) error

	// LookupUnique resolves a key through the unique index on
	// (vertexType, property); ErrNotFound when absent.
	LookupUnique(vertexType, property string, key any) (VertexID, error)

	// AddEdge creates a directed edge of the given type. No uniqueness
	// check is performed; callers ensure no duplicates.
	AddEdge(from, to VertexID, edgeType string) error

	// OutNeighbors returns the targets of the out-edges of the given type.
	OutNeighbors(from VertexID, edgeType string) ([]VertexID, error)

	// OutDegree counts the out-edges of the given type.
	OutDegree(from VertexID, edgeType string) (int, error)

	// ReplaceOutEdges atomically replaces all out-edges of the given type.
	ReplaceOutEdges(from VertexID, edgeType string, to []VertexID) error

	// DeleteVertex removes the vertex and every incident edge.
	DeleteVertex(id VertexID) error

	// EachVertex visits every vertex of the type until fn returns false.
	EachVertex(vertexType string, fn func(VertexID) bool) error
}
