// Package hnsw implements an in-memory Hierarchical Navigable Small World
// graph over string-keyed vectors. It is the staging structure for bulk
// builds: construct it offline, snapshot it, and import it into a
// persistent graph-backed index.
package hnsw

import (
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/graphvec/distance"
	"github.com/hupe1980/graphvec/internal/level"
	"github.com/hupe1980/graphvec/internal/queue"
)

const (
	// DefaultM is the default number of bidirectional links per layer.
	DefaultM = 10

	// DefaultEFConstruction is the default size of the dynamic candidate
	// list during construction.
	DefaultEFConstruction = 200
)

// ErrDuplicateKey is returned when a key is inserted twice.
type ErrDuplicateKey struct {
	Key string
}

func (e *ErrDuplicateKey) Error() string {
	return fmt.Sprintf("hnsw: duplicate key %q", e.Key)
}

// ErrDimensionMismatch is returned when a vector has the wrong length.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Node is a single element of the graph. Connections[l] lists the ids of the
// node's out-neighbors at layer l, closest first at build time.
type Node struct {
	ID          uint32
	Key         string
	Vector      []float32
	Layer       int
	Connections [][]uint32
}

// Options configures an in-memory HNSW.
type Options struct {
	// M is the number of established connections per new element. See the
	// HNSW paper: 12-48 covers most use cases.
	M int

	// EFConstruction is the size of the dynamic candidate list during
	// insertion. Larger values build a better graph, slower.
	EFConstruction int

	// DistanceFunc measures vector distance. Defaults to SquaredL2.
	DistanceFunc distance.Func
}

// DefaultOptions are the options applied when none are given.
var DefaultOptions = Options{
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	DistanceFunc:   distance.SquaredL2,
}

// SearchResult pairs a node with its distance to the query.
type SearchResult struct {
	Node     *Node
	Distance float32
}

// HNSW is the in-memory graph. Safe for concurrent use; inserts serialize
// on one mutex, the structure is not built for write throughput.
type HNSW struct {
	mutex sync.RWMutex

	dimension int
	mmax      int
	mmax0     int
	ml        float64
	ep        uint32
	maxLevel  int

	nodes []*Node
	keys  map[string]uint32

	opts Options
}

// New creates an in-memory HNSW for vectors of the given dimensionality.
func New(dimension int, optFns ...func(o *Options)) *HNSW {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.M < 2 {
		// 1/log(1) would divide by zero
		opts.M = 2
	}
	if opts.EFConstruction < opts.M {
		opts.EFConstruction = opts.M
	}
	if opts.DistanceFunc == nil {
		opts.DistanceFunc = distance.SquaredL2
	}

	return &HNSW{
		dimension: dimension,
		mmax:      opts.M,
		mmax0:     2 * opts.M,
		ml:        level.Lambda(opts.M),
		keys:      make(map[string]uint32),
		opts:      opts,
	}
}

// Dimensions returns the vector dimensionality.
func (h *HNSW) Dimensions() int { return h.dimension }

// M returns the configured connection count per layer.
func (h *HNSW) M() int { return h.opts.M }

// EFConstruction returns the construction-time candidate list size.
func (h *HNSW) EFConstruction() int { return h.opts.EFConstruction }

// DistanceFunc returns the distance function.
func (h *HNSW) DistanceFunc() distance.Func { return h.opts.DistanceFunc }

// Len returns the number of nodes in the graph.
func (h *HNSW) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.nodes)
}

// EntryPoint returns the id of the entry-point node, false when empty.
func (h *HNSW) EntryPoint() (uint32, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if len(h.nodes) == 0 {
		return 0, false
	}
	return h.ep, true
}

// Nodes visits every node in id order. The callback must not mutate the
// graph.
func (h *HNSW) Nodes(fn func(n *Node) bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for _, n := range h.nodes {
		if !fn(n) {
			return
		}
	}
}

// Insert adds a keyed vector to the graph. The node's layer derives
// deterministically from the key, so rebuilding from the same keys yields
// the same level structure.
func (h *HNSW) Insert(key string, v []float32) (uint32, error) {
	if len(v) != h.dimension {
		return 0, &ErrDimensionMismatch{Expected: h.dimension, Actual: len(v)}
	}

	vectorCopy := make([]float32, len(v))
	copy(vectorCopy, v)

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, exists := h.keys[key]; exists {
		return 0, &ErrDuplicateKey{Key: key}
	}

	id := uint32(len(h.nodes))
	layer := level.Assign(key, h.ml)

	node := &Node{
		ID:          id,
		Key:         key,
		Vector:      vectorCopy,
		Layer:       layer,
		Connections: make([][]uint32, layer+1),
	}

	if len(h.nodes) == 0 {
		h.nodes = append(h.nodes, node)
		h.keys[key] = id
		h.ep = id
		h.maxLevel = layer
		return id, nil
	}

	currObj, currDist := h.descend(vectorCopy, h.nodes[h.ep], h.maxLevel, layer)

	for l := min(layer, h.maxLevel); l >= 0; l-- {
		top := h.searchLayer(vectorCopy, currObj.ID, currDist, h.opts.EFConstruction, l)

		selected := h.selectNeighboursHeuristic(top, h.opts.M)

		node.Connections[l] = make([]uint32, len(selected))
		for i, item := range selected {
			node.Connections[l][i] = uint32(item.Node)
		}
		if len(selected) > 0 {
			currObj = h.nodes[selected[0].Node]
			currDist = selected[0].Distance
		}
	}

	h.nodes = append(h.nodes, node)
	h.keys[key] = id

	// Link back from the neighbors, now that the node is visible.
	for l := min(layer, h.maxLevel); l >= 0; l-- {
		for _, neighbour := range node.Connections[l] {
			h.link(neighbour, id, l)
		}
	}

	if layer > h.maxLevel {
		h.ep = id
		h.maxLevel = layer
	}

	return id, nil
}

// descend walks greedily from the entry point down to targetLayer+1.
func (h *HNSW) descend(q []float32, entry *Node, fromLayer, targetLayer int) (*Node, float32) {
	currObj := entry
	currDist := h.opts.DistanceFunc(q, currObj.Vector)

	for l := fromLayer; l > targetLayer; l-- {
		changed := true
		for changed {
			changed = false
			if l >= len(currObj.Connections) {
				continue
			}
			for _, id := range currObj.Connections[l] {
				d := h.opts.DistanceFunc(q, h.nodes[id].Vector)
				if d < currDist {
					currObj = h.nodes[id]
					currDist = d
					changed = true
				}
			}
		}
	}

	return currObj, currDist
}

// searchLayer runs the best-first search of one layer, returning up to ef
// candidates as a bounded max-heap.
func (h *HNSW) searchLayer(q []float32, epID uint32, epDist float32, ef int, layer int) *queue.PriorityQueue {
	var visited bitset.BitSet
	visited.Set(uint(epID))

	candidates := queue.NewMin(ef)
	candidates.Push(uint64(epID), epDist)

	top := queue.NewMax(ef)
	top.Push(uint64(epID), epDist)

	for candidates.Len() > 0 {
		lowerBound, _ := top.Top()

		candidate, _ := candidates.Pop()
		if candidate.Distance > lowerBound.Distance {
			break
		}

		node := h.nodes[candidate.Node]
		if layer >= len(node.Connections) {
			continue
		}

		for _, n := range node.Connections[layer] {
			if visited.Test(uint(n)) {
				continue
			}
			visited.Set(uint(n))

			d := h.opts.DistanceFunc(q, h.nodes[n].Vector)

			if top.Len() < ef {
				candidates.Push(uint64(n), d)
				top.Push(uint64(n), d)
			} else if worst, _ := top.Top(); d < worst.Distance {
				candidates.Push(uint64(n), d)
				top.Push(uint64(n), d)
				top.Pop()
			}
		}
	}

	return top
}

// selectNeighboursHeuristic prunes candidates down to at most m diverse
// elements, closest first. A candidate survives only if no already-kept
// neighbor sits closer to it than the query does.
func (h *HNSW) selectNeighboursHeuristic(top *queue.PriorityQueue, m int) []queue.Item {
	items := top.Drain()
	if len(items) < m {
		return items
	}

	kept := make([]queue.Item, 0, m)
	for _, candidate := range items {
		if len(kept) >= m {
			break
		}

		good := true
		for _, existing := range kept {
			d := h.opts.DistanceFunc(h.nodes[existing.Node].Vector, h.nodes[candidate.Node].Vector)
			if d < candidate.Distance {
				good = false
				break
			}
		}
		if good {
			kept = append(kept, candidate)
		}
	}

	return kept
}

// link wires neighbour -> target at the given layer, pruning the
// neighbour's list when it exceeds the layer's cap.
func (h *HNSW) link(neighbour, target uint32, layer int) {
	maxConnections := h.mmax
	if layer == 0 {
		maxConnections = h.mmax0
	}

	node := h.nodes[neighbour]
	if layer >= len(node.Connections) {
		return
	}
	node.Connections[layer] = append(node.Connections[layer], target)

	if len(node.Connections[layer]) <= maxConnections {
		return
	}

	candidates := queue.NewMax(len(node.Connections[layer]))
	for _, id := range node.Connections[layer] {
		candidates.Push(uint64(id), h.opts.DistanceFunc(node.Vector, h.nodes[id].Vector))
	}

	selected := h.selectNeighboursHeuristic(candidates, maxConnections)

	node.Connections[layer] = node.Connections[layer][:0]
	for _, item := range selected {
		node.Connections[layer] = append(node.Connections[layer], uint32(item.Node))
	}
}

// KNNSearch finds the k nearest nodes to q, ascending by distance.
func (h *HNSW) KNNSearch(q []float32, k int, efSearch int) ([]SearchResult, error) {
	if len(q) != h.dimension {
		return nil, &ErrDimensionMismatch{Expected: h.dimension, Actual: len(q)}
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if len(h.nodes) == 0 {
		return nil, nil
	}

	if efSearch < k {
		efSearch = k
	}

	currObj, currDist := h.descend(q, h.nodes[h.ep], h.maxLevel, 0)

	top := h.searchLayer(q, currObj.ID, currDist, efSearch, 0)
	for top.Len() > k {
		top.Pop()
	}

	items := top.Drain()
	results := make([]SearchResult, len(items))
	for i, item := range items {
		results[i] = SearchResult{Node: h.nodes[item.Node], Distance: item.Distance}
	}
	return results, nil
}

// BruteSearch scans every node, the exact oracle for tests and recall
// measurements.
func (h *HNSW) BruteSearch(q []float32, k int) ([]SearchResult, error) {
	if len(q) != h.dimension {
		return nil, &ErrDimensionMismatch{Expected: h.dimension, Actual: len(q)}
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	top := queue.NewMax(k)
	for _, node := range h.nodes {
		d := h.opts.DistanceFunc(q, node.Vector)
		if top.Len() < k {
			top.Push(uint64(node.ID), d)
		} else if worst, _ := top.Top(); d < worst.Distance {
			top.Pop()
			top.Push(uint64(node.ID), d)
		}
	}

	items := top.Drain()
	results := make([]SearchResult, len(items))
	for i, item := range items {
		results[i] = SearchResult{Node: h.nodes[item.Node], Distance: item.Distance}
	}
	return results, nil
}
