package graphvec

import (
	"time"

	"github.com/hupe1980/graphvec/graph"
	"github.com/hupe1980/graphvec/internal/queue"
	"github.com/hupe1980/graphvec/internal/visited"
)

// SearchResult pairs an indexed vertex with its distance to the query,
// ascending by distance.
type SearchResult struct {
	Vertex   *graph.VertexData
	Distance float32
}

// FindNearest returns the k approximate nearest vertices to the query
// vector. An empty index yields an empty result.
func (ix *Index) FindNearest(q []float32, k int) ([]SearchResult, error) {
	start := time.Now()
	results, err := ix.findNearest(q, k)
	if ix.metrics != nil {
		ix.metrics.RecordSearch(k, time.Since(start), err)
	}
	return results, err
}

func (ix *Index) findNearest(q []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(q) != ix.dimensions {
		return nil, &ErrDimensionMismatch{Expected: ix.dimensions, Actual: len(q)}
	}

	ep := graph.VertexID(ix.entryPoint.Load())
	if ep == graph.Nil {
		return nil, nil
	}

	epLevel, err := ix.entryPointLevel(ep)
	if err != nil {
		return nil, err
	}

	cur, _, err := ix.greedyDescend(q, ep, epLevel, 0, false)
	if err != nil {
		return nil, err
	}

	ef := ix.Ef()
	if ef < k {
		ef = k
	}

	top, err := ix.searchBaseLayer(cur, q, ef, 0, false)
	if err != nil {
		return nil, err
	}

	for top.Len() > k {
		top.Pop()
	}

	items := top.Drain()
	results := make([]SearchResult, len(items))
	for i, item := range items {
		d, err := ix.adapter.Data(graph.VertexID(item.Node))
		if err != nil {
			return nil, err
		}
		results[i] = SearchResult{Vertex: d, Distance: item.Distance}
	}
	return results, nil
}

// FindNeighbors returns the k nearest vertices to the vertex with the given
// external id, never including that vertex itself. Unknown ids yield an
// empty result.
func (ix *Index) FindNeighbors(key string, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}

	d, err := ix.Get(key)
	if err != nil || d == nil {
		return nil, err
	}

	results, err := ix.FindNearest(d.Vector, k+1)
	if err != nil {
		return nil, err
	}

	filtered := make([]SearchResult, 0, k)
	for _, r := range results {
		if r.Vertex.Key == key {
			continue
		}
		filtered = append(filtered, r)
		if len(filtered) == k {
			break
		}
	}
	return filtered, nil
}

// greedyDescend walks strictly-improving neighbors from the entry point at
// fromLevel down to toLevel+1 and returns the final vertex and its distance
// to q. With locked set, each vertex's adjacency is scanned under its
// mutation lock, giving inserters a consistent snapshot.
func (ix *Index) greedyDescend(q []float32, from graph.VertexID, fromLevel, toLevel int, locked bool) (graph.VertexID, float32, error) {
	cur := from
	curData, err := ix.adapter.Data(cur)
	if err != nil {
		return graph.Nil, 0, err
	}
	curDist := ix.distanceFunc(q, curData.Vector)

	for activeLevel := fromLevel; activeLevel > toLevel; activeLevel-- {
		for changed := true; changed; {
			changed = false

			scanned := cur
			if locked {
				ix.adapter.RLock(scanned)
			}
			neighbors, err := ix.adapter.OutNeighbors(scanned, activeLevel)
			if err == nil {
				for _, n := range neighbors {
					nd, derr := ix.adapter.Data(n)
					if derr != nil {
						err = derr
						break
					}
					if d := ix.distanceFunc(q, nd.Vector); ix.lt(d, curDist) {
						cur, curDist = n, d
						changed = true
					}
				}
			}
			if locked {
				ix.adapter.RUnlock(scanned)
			}
			if err != nil {
				return graph.Nil, 0, err
			}
		}
	}

	return cur, curDist, nil
}

// searchBaseLayer runs the best-first search of one layer from entry,
// returning up to k candidates as a bounded max-heap (farthest on top).
func (ix *Index) searchBaseLayer(entry graph.VertexID, q []float32, k, layer int, locked bool) (*queue.PriorityQueue, error) {
	entryData, err := ix.adapter.Data(entry)
	if err != nil {
		return nil, err
	}
	entryDist := ix.distanceFunc(q, entryData.Vector)

	seen := visited.New(k * 4)
	seen.Visit(uint64(entry))

	candidates := queue.NewMin(k)
	candidates.Push(uint64(entry), entryDist)

	top := queue.NewMax(k)
	top.Push(uint64(entry), entryDist)

	lowerBound := entryDist

	for candidates.Len() > 0 {
		current, _ := candidates.Pop()

		// The min-heap guarantees no remaining candidate is closer, and top
		// is already full of closer members: nothing can improve.
		if ix.gt(current.Distance, lowerBound) {
			break
		}

		cur := graph.VertexID(current.Node)

		if locked {
			ix.adapter.RLock(cur)
		}
		neighbors, err := ix.adapter.OutNeighbors(cur, layer)
		if locked {
			ix.adapter.RUnlock(cur)
		}
		if err != nil {
			return nil, err
		}

		for _, n := range neighbors {
			if seen.Visited(uint64(n)) {
				continue
			}
			seen.Visit(uint64(n))

			nd, err := ix.adapter.Data(n)
			if err != nil {
				return nil, err
			}
			d := ix.distanceFunc(q, nd.Vector)

			if top.Len() < k || ix.gt(lowerBound, d) {
				candidates.Push(uint64(n), d)
				top.Push(uint64(n), d)

				if top.Len() > k {
					top.Pop()
				}
				if worst, ok := top.Top(); ok {
					lowerBound = worst.Distance
				}
			}
		}
	}

	return top, nil
}
