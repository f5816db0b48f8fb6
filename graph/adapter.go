package graph

import (
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/graphvec/internal/cache"
	"github.com/hupe1980/graphvec/internal/vertexlock"
)

// MaxLevelProperty is the vertex property holding the vertex's highest
// layer. An absent property means layer 0.
const MaxLevelProperty = "vectorMaxLevel"

// VertexData is the decoded view of an indexed vertex.
type VertexData struct {
	ID       VertexID
	Key      string
	Vector   []float32
	MaxLevel int
}

// Adapter binds a Store to one index's vertex type, edge-type prefix and
// property names. All layer adjacency goes through it, as do the per-vertex
// mutation locks used by concurrent inserts.
type Adapter struct {
	store      Store
	vertexType string
	edgeType   string
	idProp     string
	vectorProp string

	locks *vertexlock.Registry

	// Optional decoded-vertex cache with singleflight load dedup.
	cache *cache.LRU[*VertexData]
	group singleflight.Group
}

// NewAdapter creates an adapter. cacheSize <= 0 disables the vertex cache.
func NewAdapter(store Store, vertexType, edgeType, idProp, vectorProp string, cacheSize int) *Adapter {
	a := &Adapter{
		store:      store,
		vertexType: vertexType,
		edgeType:   edgeType,
		idProp:     idProp,
		vectorProp: vectorProp,
		locks:      vertexlock.New(),
	}
	if cacheSize > 0 {
		a.cache = cache.NewLRU[*VertexData](cacheSize)
	}
	return a
}

// Store returns the underlying engine.
func (a *Adapter) Store() Store { return a.store }

// VertexType returns the vertex type indexed by this adapter.
func (a *Adapter) VertexType() string { return a.vertexType }

// EnsureSchema creates the vertex type and the unique secondary index on
// the external-id property. Idempotent; called on build and on load.
func (a *Adapter) EnsureSchema() error {
	if err := a.store.EnsureVertexType(a.vertexType); err != nil {
		return err
	}
	return a.store.EnsureUniqueIndex(a.vertexType, a.idProp)
}

// EdgeType returns the persisted edge-type name for a layer:
// the configured prefix followed by the decimal level.
func (a *Adapter) EdgeType(level int) string {
	return a.edgeType + strconv.Itoa(level)
}

// EnsureEdgeType lazily creates the edge type for a layer.
func (a *Adapter) EnsureEdgeType(level int) error {
	return a.store.EnsureEdgeType(a.EdgeType(level))
}

// ByExternalID resolves an external id through the unique index.
func (a *Adapter) ByExternalID(key string) (VertexID, error) {
	return a.store.LookupUnique(a.vertexType, a.idProp, key)
}

// CreateVertex creates a vertex carrying the external id and vector.
func (a *Adapter) CreateVertex(key string, vector []float32, maxLevel int) (VertexID, error) {
	props := map[string]any{
		a.idProp:     key,
		a.vectorProp: vector,
	}
	if maxLevel > 0 {
		props[MaxLevelProperty] = maxLevel
	}
	return a.store.CreateVertex(a.vertexType, props)
}

// Data loads the decoded view of a vertex, via the cache when enabled.
func (a *Adapter) Data(id VertexID) (*VertexData, error) {
	if a.cache == nil {
		return a.load(id)
	}

	if d, ok := a.cache.Get(uint64(id)); ok {
		return d, nil
	}

	v, err, _ := a.group.Do(strconv.FormatUint(uint64(id), 10), func() (any, error) {
		if d, ok := a.cache.Get(uint64(id)); ok {
			return d, nil
		}
		d, err := a.load(id)
		if err != nil {
			return nil, err
		}
		a.cache.Put(uint64(id), d)
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*VertexData), nil
}

func (a *Adapter) load(id VertexID) (*VertexData, error) {
	key, err := a.store.Property(id, a.idProp)
	if err != nil {
		return nil, err
	}
	raw, err := a.store.Property(id, a.vectorProp)
	if err != nil {
		return nil, err
	}
	vec, err := asVector(raw)
	if err != nil {
		return nil, fmt.Errorf("vertex %d property %q: %w", id, a.vectorProp, err)
	}
	lvl, err := a.maxLevel(id)
	if err != nil {
		return nil, err
	}

	keyStr, _ := key.(string)
	return &VertexData{ID: id, Key: keyStr, Vector: vec, MaxLevel: lvl}, nil
}

func (a *Adapter) maxLevel(id VertexID) (int, error) {
	raw, err := a.store.Property(id, MaxLevelProperty)
	if err != nil {
		return 0, err
	}
	return asLevel(raw), nil
}

// MaxLevel reads a vertex's highest layer; absent means 0.
func (a *Adapter) MaxLevel(id VertexID) (int, error) {
	if a.cache != nil {
		if d, ok := a.cache.Get(uint64(id)); ok {
			return d.MaxLevel, nil
		}
	}
	return a.maxLevel(id)
}

// WriteMaxLevel persists a vertex's highest layer and refreshes the cache.
func (a *Adapter) WriteMaxLevel(id VertexID, level int) error {
	if err := a.store.SetProperty(id, MaxLevelProperty, level); err != nil {
		return err
	}
	if a.cache != nil {
		if d, ok := a.cache.Get(uint64(id)); ok {
			updated := *d
			updated.MaxLevel = level
			a.cache.Put(uint64(id), &updated)
		}
	}
	return nil
}

// OutNeighbors lists a vertex's out-neighbors at a layer.
func (a *Adapter) OutNeighbors(id VertexID, level int) ([]VertexID, error) {
	return a.store.OutNeighbors(id, a.EdgeType(level))
}

// OutDegree counts a vertex's out-edges at a layer.
func (a *Adapter) OutDegree(id VertexID, level int) (int, error) {
	return a.store.OutDegree(id, a.EdgeType(level))
}

// AddEdge wires a directed layer edge.
func (a *Adapter) AddEdge(from, to VertexID, level int) error {
	return a.store.AddEdge(from, to, a.EdgeType(level))
}

// ReplaceOutEdges swaps a vertex's adjacency at a layer in one step, so the
// degree bound holds at every commit point.
func (a *Adapter) ReplaceOutEdges(from VertexID, level int, to []VertexID) error {
	return a.store.ReplaceOutEdges(from, a.EdgeType(level), to)
}

// DeleteVertex removes the vertex, its edges and its cache entry.
func (a *Adapter) DeleteVertex(id VertexID) error {
	if a.cache != nil {
		a.cache.Remove(uint64(id))
	}
	return a.store.DeleteVertex(id)
}

// EachVertex visits every vertex of the indexed type.
func (a *Adapter) EachVertex(fn func(VertexID) bool) error {
	return a.store.EachVertex(a.vertexType, fn)
}

// Lock acquires the vertex's mutation lock.
func (a *Adapter) Lock(id VertexID) { a.locks.Lock(uint64(id)) }

// Unlock releases the vertex's mutation lock.
func (a *Adapter) Unlock(id VertexID) { a.locks.Unlock(uint64(id)) }

// RLock acquires the vertex's mutation lock for reading.
func (a *Adapter) RLock(id VertexID) { a.locks.RLock(uint64(id)) }

// RUnlock releases the vertex's read lock.
func (a *Adapter) RUnlock(id VertexID) { a.locks.RUnlock(uint64(id)) }

func asVector(raw any) ([]float32, error) {
	switch v := raw.(type) {
	case []float32:
		return v, nil
	case []float64:
		out := make([]float32, len(v))
		for i, x := range v {
			out[i] = float32(x)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("missing vector")
	default:
		return nil, fmt.Errorf("unsupported vector type %T", raw)
	}
}

func asLevel(raw any) int {
	switch v := raw.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
