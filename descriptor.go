package graphvec

import (
	"context"
	"strconv"

	"github.com/hupe1980/graphvec/blobstore"
	"github.com/hupe1980/graphvec/codec"
	"github.com/hupe1980/graphvec/distance"
	"github.com/hupe1980/graphvec/graph"
	"github.com/hupe1980/graphvec/internal/excluded"
)

// DescriptorVersion is the current descriptor format version.
const DescriptorVersion = 0

// Descriptor is the flat parameter blob that serializes an index. The graph
// itself lives in the storage engine; the descriptor only carries the
// parameters and the entry-point identity needed to reopen it.
type Descriptor struct {
	Version            int     `json:"version"`
	Dimensions         int     `json:"dimensions"`
	DistanceFunction   string  `json:"distanceFunction"`
	DistanceComparator string  `json:"distanceComparator"`
	MaxItemCount       int     `json:"maxItemCount"`
	M                  int     `json:"m"`
	MaxM               int     `json:"maxM"`
	MaxM0              int     `json:"maxM0"`
	LevelLambda        float64 `json:"levelLambda"`
	Ef                 int     `json:"ef"`
	EfConstruction     int     `json:"efConstruction"`
	EntryPoint         string  `json:"entryPoint"`
	VertexType         string  `json:"vertexType"`
	EdgeType           string  `json:"edgeType"`
	IDPropertyName     string  `json:"idPropertyName"`
	VectorPropertyName string  `json:"vectorPropertyName"`
}

// Descriptor returns the current parameter descriptor of the index.
func (ix *Index) Descriptor() Descriptor {
	entry := ""
	if ep, ok := ix.EntryPoint(); ok {
		entry = strconv.FormatUint(uint64(ep), 10)
	}

	return Descriptor{
		Version:            DescriptorVersion,
		Dimensions:         ix.dimensions,
		DistanceFunction:   distance.Name(ix.distanceFunc),
		DistanceComparator: distance.ComparatorName(ix.distanceCmp),
		MaxItemCount:       ix.maxItemCount,
		M:                  ix.m,
		MaxM:               ix.maxM,
		MaxM0:              ix.maxM0,
		LevelLambda:        ix.levelLambda,
		Ef:                 ix.Ef(),
		EfConstruction:     ix.efConstruction,
		EntryPoint:         entry,
		VertexType:         ix.vertexType,
		EdgeType:           ix.edgeType,
		IDPropertyName:     ix.idPropertyName,
		VectorPropertyName: ix.vectorPropertyName,
	}
}

// MarshalDescriptor encodes the descriptor with the default codec.
func (ix *Index) MarshalDescriptor() ([]byte, error) {
	return codec.Default.Marshal(ix.Descriptor())
}

// OpenOptions configures OpenIndex.
type OpenOptions struct {
	Codec     codec.Codec
	Logger    *Logger
	Metrics   MetricsCollector
	CacheSize int
}

// OpenIndex rehydrates an index from its descriptor against a storage
// engine. The distance function and comparator are resolved through the
// registry; unknown names fail and the index does not open. The unique
// secondary index on the id property is (re)created if absent.
func OpenIndex(db graph.Store, data []byte, optFns ...func(o *OpenOptions)) (*Index, error) {
	opts := OpenOptions{Codec: codec.Default}
	for _, fn := range optFns {
		fn(&opts)
	}

	var desc Descriptor
	if err := opts.Codec.Unmarshal(data, &desc); err != nil {
		return nil, err
	}

	fn, ok := distance.Lookup(desc.DistanceFunction)
	if !ok {
		return nil, &ErrUnknownDistance{Name: desc.DistanceFunction}
	}
	cmp, ok := distance.LookupComparator(desc.DistanceComparator)
	if !ok {
		return nil, &ErrUnknownComparator{Name: desc.DistanceComparator}
	}

	logger := opts.Logger
	if logger == nil {
		logger = NoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	ix := &Index{
		dimensions:           desc.Dimensions,
		maxItemCount:         desc.MaxItemCount,
		m:                    desc.M,
		maxM:                 desc.MaxM,
		maxM0:                desc.MaxM0,
		levelLambda:          desc.LevelLambda,
		efConstruction:       desc.EfConstruction,
		distanceFunc:         fn,
		distanceCmp:          cmp,
		transactionBatchSize: defaultTransactionBatchSize,
		vertexType:           desc.VertexType,
		edgeType:             desc.EdgeType,
		idPropertyName:       desc.IDPropertyName,
		vectorPropertyName:   desc.VectorPropertyName,
		adapter: graph.NewAdapter(db, desc.VertexType, desc.EdgeType,
			desc.IDPropertyName, desc.VectorPropertyName, opts.CacheSize),
		excluded: excluded.New(),
		logger:   logger,
		metrics:  metrics,
	}
	ix.ef.Store(int64(desc.Ef))

	if desc.EntryPoint != "" {
		ep, err := strconv.ParseUint(desc.EntryPoint, 10, 64)
		if err != nil {
			return nil, err
		}
		ix.entryPoint.Store(ep)
	}

	if err := ix.adapter.EnsureSchema(); err != nil {
		return nil, err
	}

	return ix, nil
}

// SaveDescriptor writes the descriptor blob to a blob store.
func (ix *Index) SaveDescriptor(ctx context.Context, store blobstore.Store, name string) error {
	data, err := ix.MarshalDescriptor()
	if err != nil {
		return err
	}
	return store.Put(ctx, name, data)
}

// LoadIndex reads a descriptor blob from a blob store and opens the index
// against the given storage engine.
func LoadIndex(ctx context.Context, store blobstore.Store, name string, db graph.Store, optFns ...func(o *OpenOptions)) (*Index, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return OpenIndex(db, data, optFns...)
}
