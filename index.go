package graphvec

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/graphvec/distance"
	"github.com/hupe1980/graphvec/graph"
	"github.com/hupe1980/graphvec/internal/excluded"
)

// Index is a persistent HNSW index over a graph storage engine.
//
// Concurrency: Add may be called from multiple goroutines. Remove is not
// synchronized with in-flight Adds beyond the global lock; callers must
// serialize removes against inserts externally.
type Index struct {
	dimensions     int
	maxItemCount   int
	m              int
	maxM           int
	maxM0          int
	levelLambda    float64
	efConstruction int
	ef             atomic.Int64

	distanceFunc distance.Func
	distanceCmp  distance.Comparator

	transactionBatchSize int

	vertexType         string
	edgeType           string
	idPropertyName     string
	vectorPropertyName string

	adapter *graph.Adapter

	// globalMu guards entry-point promotion, level persistence and the
	// idempotence gate. Inserters that cannot promote release it early.
	globalMu   sync.Mutex
	entryPoint atomic.Uint64

	excluded *excluded.Set

	logger  *Logger
	metrics MetricsCollector
	limiter *rate.Limiter
}

// lt compares distances through the configured comparator.
func (ix *Index) lt(x, y float32) bool { return ix.distanceCmp(x, y) < 0 }

// gt compares distances through the configured comparator.
func (ix *Index) gt(x, y float32) bool { return ix.distanceCmp(x, y) > 0 }

// Dimensions returns the dimensionality of the indexed vectors.
func (ix *Index) Dimensions() int { return ix.dimensions }

// M returns the number of bidirectional links created per element.
func (ix *Index) M() int { return ix.m }

// Ef returns the size of the dynamic candidate list used at query time.
func (ix *Index) Ef() int { return int(ix.ef.Load()) }

// SetEf changes the query-time candidate list size.
func (ix *Index) SetEf(ef int) { ix.ef.Store(int64(ef)) }

// EfConstruction returns the candidate list size used during insertion.
func (ix *Index) EfConstruction() int { return ix.efConstruction }

// MaxItemCount returns the advisory capacity bound. It is persisted and
// exposed but not enforced on insert.
func (ix *Index) MaxItemCount() int { return ix.maxItemCount }

// DistanceFunc returns the distance function.
func (ix *Index) DistanceFunc() distance.Func { return ix.distanceFunc }

// DistanceComparator returns the distance comparator.
func (ix *Index) DistanceComparator() distance.Comparator { return ix.distanceCmp }

// Adapter exposes the graph adapter, mainly for inspection in tests and
// external tooling that reads the persisted graph directly.
func (ix *Index) Adapter() *graph.Adapter { return ix.adapter }

// EntryPoint returns the current entry-point vertex, false when the index
// is empty.
func (ix *Index) EntryPoint() (graph.VertexID, bool) {
	id := graph.VertexID(ix.entryPoint.Load())
	return id, id != graph.Nil
}

func (ix *Index) entryPointLevel(ep graph.VertexID) (int, error) {
	if ep == graph.Nil {
		return 0, nil
	}
	return ix.adapter.MaxLevel(ep)
}

// Get resolves an external id to its indexed vertex. It returns nil without
// error when the id is unknown.
func (ix *Index) Get(key string) (*graph.VertexData, error) {
	ix.globalMu.Lock()
	defer ix.globalMu.Unlock()

	return ix.getLocked(key)
}

func (ix *Index) getLocked(key string) (*graph.VertexData, error) {
	id, err := ix.adapter.ByExternalID(key)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ix.adapter.Data(id)
}

// Remove deletes the vertex with the given external id together with its
// incident edges. It returns false when the id is unknown. When the entry
// point is removed, the highest-level remaining out-neighbor of the deleted
// vertex is promoted; if none exists, the highest-level vertex found by a
// full scan.
func (ix *Index) Remove(key string) (bool, error) {
	start := time.Now()
	ok, err := ix.remove(key)
	if ix.metrics != nil {
		ix.metrics.RecordRemove(time.Since(start), err)
	}
	return ok, err
}

func (ix *Index) remove(key string) (bool, error) {
	ix.globalMu.Lock()
	defer ix.globalMu.Unlock()

	d, err := ix.getLocked(key)
	if err != nil || d == nil {
		return false, err
	}

	if graph.VertexID(ix.entryPoint.Load()) == d.ID {
		next, err := ix.successorEntryPoint(d)
		if err != nil {
			return false, err
		}
		ix.entryPoint.Store(uint64(next))
		ix.logger.Debug("entry point reassigned", "from", uint64(d.ID), "to", uint64(next))
	}

	if err := ix.adapter.DeleteVertex(d.ID); err != nil {
		return false, err
	}
	return true, nil
}

// successorEntryPoint picks the replacement entry point for a vertex about
// to be deleted: its highest-level out-neighbor, else the highest-level
// vertex in the graph, else none.
func (ix *Index) successorEntryPoint(d *graph.VertexData) (graph.VertexID, error) {
	var (
		best      graph.VertexID
		bestLevel = -1
	)

	for lvl := d.MaxLevel; lvl >= 0; lvl-- {
		neighbors, err := ix.adapter.OutNeighbors(d.ID, lvl)
		if err != nil {
			return graph.Nil, err
		}
		for _, n := range neighbors {
			nl, err := ix.adapter.MaxLevel(n)
			if err != nil {
				return graph.Nil, err
			}
			if nl > bestLevel {
				best, bestLevel = n, nl
			}
		}
		if bestLevel >= d.MaxLevel {
			// No vertex sits above the deleted entry point's level, so no
			// lower layer can offer a better candidate.
			break
		}
	}

	if best != graph.Nil {
		return best, nil
	}

	var scanErr error
	err := ix.adapter.EachVertex(func(id graph.VertexID) bool {
		if id == d.ID {
			return true
		}
		nl, err := ix.adapter.MaxLevel(id)
		if err != nil {
			scanErr = err
			return false
		}
		if nl > bestLevel {
			best, bestLevel = id, nl
		}
		return true
	})
	if err != nil {
		return graph.Nil, err
	}
	if scanErr != nil {
		return graph.Nil, scanErr
	}
	return best, nil
}
