package graphvec

import (
	"time"

	"github.com/hupe1980/graphvec/graph"
	"github.com/hupe1980/graphvec/internal/level"
	"github.com/hupe1980/graphvec/internal/queue"
)

// Insert creates a vertex carrying the external id and vector, then
// registers it in the index. The unique secondary index rejects duplicate
// ids with graph.ErrUniqueViolation.
func (ix *Index) Insert(key string, vector []float32) (graph.VertexID, error) {
	if len(vector) != ix.dimensions {
		return graph.Nil, &ErrDimensionMismatch{Expected: ix.dimensions, Actual: len(vector)}
	}

	id, err := ix.adapter.CreateVertex(key, vector, 0)
	if err != nil {
		return graph.Nil, err
	}

	if _, err := ix.Add(id); err != nil {
		return graph.Nil, err
	}
	return id, nil
}

// Add registers an existing vertex in the index. Registration is
// idempotent: a vertex that already has layer-0 out-edges reports success
// without mutation. Safe for concurrent use.
func (ix *Index) Add(id graph.VertexID) (bool, error) {
	start := time.Now()
	ok, err := ix.add(id)
	if ix.metrics != nil {
		ix.metrics.RecordInsert(time.Since(start), err)
	}
	return ok, err
}

func (ix *Index) add(id graph.VertexID) (bool, error) {
	d, err := ix.adapter.Data(id)
	if err != nil {
		return false, err
	}
	if len(d.Vector) != ix.dimensions {
		return false, &ErrDimensionMismatch{Expected: ix.dimensions, Actual: len(d.Vector)}
	}

	randomLevel := level.Assign(d.Key, ix.levelLambda)

	ix.globalMu.Lock()
	held := true
	defer func() {
		if held {
			ix.globalMu.Unlock()
		}
	}()

	deg, err := ix.adapter.OutDegree(id, 0)
	if err != nil {
		return false, err
	}
	if deg > 0 {
		// Already inserted.
		return true, nil
	}

	if err := ix.adapter.WriteMaxLevel(id, randomLevel); err != nil {
		return false, err
	}

	ix.excluded.Add(uint64(id))
	defer ix.excluded.Remove(uint64(id))

	ep := graph.VertexID(ix.entryPoint.Load())
	epLevel, err := ix.entryPointLevel(ep)
	if err != nil {
		return false, err
	}

	// Early release: layers above randomLevel stay untouched, so entry-point
	// promotion is impossible and other inserters may proceed.
	if ep != graph.Nil && randomLevel <= epLevel {
		ix.globalMu.Unlock()
		held = false
	}

	if ep != graph.Nil {
		cur := ep
		if randomLevel < epLevel {
			cur, _, err = ix.greedyDescend(d.Vector, ep, epLevel, randomLevel, true)
			if err != nil {
				return false, err
			}
		}

		for lvl := min(randomLevel, epLevel); lvl >= 0; lvl-- {
			top, err := ix.searchBaseLayer(cur, d.Vector, ix.efConstruction, lvl, true)
			if err != nil {
				return false, err
			}
			if err := ix.mutuallyConnect(d, top, lvl); err != nil {
				return false, err
			}
		}
	}

	if ep == graph.Nil || randomLevel > epLevel {
		// Promotion is safe: the early-release rule kept the global lock in
		// exactly these cases.
		ix.entryPoint.Store(uint64(id))
	}

	return true, nil
}

// mutuallyConnect wires the new vertex into a layer: heuristic selection of
// at most m neighbors, forward edges, and capped backward edges with
// re-pruning when a neighbor is full.
func (ix *Index) mutuallyConnect(d *graph.VertexData, top *queue.PriorityQueue, lvl int) error {
	bestN := ix.maxM
	if lvl == 0 {
		bestN = ix.maxM0
	}

	selected, err := ix.selectNeighborsHeuristic(top, ix.m)
	if err != nil {
		return err
	}

	if err := ix.adapter.EnsureEdgeType(lvl); err != nil {
		return err
	}

	for _, cand := range selected {
		nid := graph.VertexID(cand.Node)
		if nid == d.ID {
			continue
		}
		// Skip another inserter's half-built vertex.
		if ix.excluded.Contains(uint64(nid)) {
			continue
		}

		ix.adapter.Lock(d.ID)
		err := ix.adapter.AddEdge(d.ID, nid, lvl)
		ix.adapter.Unlock(d.ID)
		if err != nil {
			return err
		}

		if err := ix.connectBack(d, nid, lvl, bestN); err != nil {
			return err
		}
	}

	return nil
}

// connectBack adds the reverse edge neighbor -> new vertex, re-pruning the
// neighbor's adjacency when it is at capacity. The neighbor's mutation lock
// covers the degree check and the rewrite, so the bound holds under
// concurrent inserts.
func (ix *Index) connectBack(d *graph.VertexData, nid graph.VertexID, lvl, bestN int) error {
	ix.adapter.Lock(nid)
	defer ix.adapter.Unlock(nid)

	deg, err := ix.adapter.OutDegree(nid, lvl)
	if err != nil {
		return err
	}

	if deg < bestN {
		return ix.adapter.AddEdge(nid, d.ID, lvl)
	}

	nd, err := ix.adapter.Data(nid)
	if err != nil {
		return err
	}

	candidates := queue.NewMax(deg + 1)
	candidates.Push(uint64(d.ID), ix.distanceFunc(d.Vector, nd.Vector))

	neighbors, err := ix.adapter.OutNeighbors(nid, lvl)
	if err != nil {
		return err
	}
	for _, t := range neighbors {
		td, err := ix.adapter.Data(t)
		if err != nil {
			return err
		}
		candidates.Push(uint64(t), ix.distanceFunc(nd.Vector, td.Vector))
	}

	survivors, err := ix.selectNeighborsHeuristic(candidates, bestN)
	if err != nil {
		return err
	}

	rewired := make([]graph.VertexID, len(survivors))
	for i, s := range survivors {
		rewired[i] = graph.VertexID(s.Node)
	}
	// Old edges out, survivors in, one step: the degree bound holds at
	// every commit point.
	return ix.adapter.ReplaceOutEdges(nid, lvl, rewired)
}

// selectNeighborsHeuristic prunes a candidate queue down to at most m
// diverse neighbors, closest first. A candidate survives only if no
// already-kept neighbor is strictly closer to it than the query is.
func (ix *Index) selectNeighborsHeuristic(top *queue.PriorityQueue, m int) ([]queue.Item, error) {
	if top.Len() < m {
		return top.Drain(), nil
	}

	closest := top.Drain()

	kept := make([]queue.Item, 0, m)
	for _, cand := range closest {
		if len(kept) >= m {
			break
		}

		cd, err := ix.adapter.Data(graph.VertexID(cand.Node))
		if err != nil {
			return nil, err
		}

		good := true
		for _, existing := range kept {
			ed, err := ix.adapter.Data(graph.VertexID(existing.Node))
			if err != nil {
				return nil, err
			}
			if ix.lt(ix.distanceFunc(ed.Vector, cd.Vector), cand.Distance) {
				good = false
				break
			}
		}
		if good {
			kept = append(kept, cand)
		}
	}

	return kept, nil
}
