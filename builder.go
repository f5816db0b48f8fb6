package graphvec

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/hupe1980/graphvec/distance"
	"github.com/hupe1980/graphvec/graph"
	"github.com/hupe1980/graphvec/hnsw"
	"github.com/hupe1980/graphvec/internal/excluded"
	"github.com/hupe1980/graphvec/internal/level"
)

const (
	// DefaultM is the default number of bidirectional links per element.
	DefaultM = 10

	// DefaultEf is the default query-time candidate list size.
	DefaultEf = 10

	// DefaultEfConstruction is the default construction-time candidate
	// list size.
	DefaultEfConstruction = 200

	defaultTransactionBatchSize = 10_000

	defaultVertexType         = "VectorVertex"
	defaultEdgeType           = "VectorEdge"
	defaultIDPropertyName     = "id"
	defaultVectorPropertyName = "vector"
)

// Builder assembles an Index. Methods return a new builder with the updated
// configuration, so partially-applied builders can be shared safely.
type Builder struct {
	dimensions     int
	distanceFunc   distance.Func
	distanceCmp    distance.Comparator
	maxItemCount   int
	m              int
	ef             int
	efConstruction int

	db                   graph.Store
	vertexType           string
	edgeType             string
	idPropertyName       string
	vectorPropertyName   string
	cacheSize            int
	transactionBatchSize int

	origin *hnsw.HNSW

	logger      *Logger
	metrics     MetricsCollector
	batchesPerS float64
}

// NewBuilder starts an index build. maxItemCount is advisory capacity; it
// is persisted and exposed but not enforced.
func NewBuilder(dimensions int, fn distance.Func, maxItemCount int) Builder {
	return Builder{
		dimensions:           dimensions,
		distanceFunc:         fn,
		distanceCmp:          distance.Natural,
		maxItemCount:         maxItemCount,
		m:                    DefaultM,
		ef:                   DefaultEf,
		efConstruction:       DefaultEfConstruction,
		vertexType:           defaultVertexType,
		edgeType:             defaultEdgeType,
		idPropertyName:       defaultIDPropertyName,
		vectorPropertyName:   defaultVectorPropertyName,
		transactionBatchSize: defaultTransactionBatchSize,
	}
}

// NewBuilderFromOrigin starts a build seeded from a pre-built in-memory
// HNSW. Dimensions, m, efConstruction and the distance function carry over
// from the origin; Build bulk-imports its nodes and edges.
func NewBuilderFromOrigin(origin *hnsw.HNSW, maxItemCount int) Builder {
	b := NewBuilder(origin.Dimensions(), origin.DistanceFunc(), maxItemCount)
	b.m = origin.M()
	b.efConstruction = origin.EFConstruction()
	b.origin = origin
	return b
}

// WithDatabase sets the graph storage engine. Required.
func (b Builder) WithDatabase(db graph.Store) Builder {
	b.db = db
	return b
}

// WithVertexType sets the vertex type holding indexed items.
func (b Builder) WithVertexType(vertexType string) Builder {
	b.vertexType = vertexType
	return b
}

// WithEdgeType sets the edge-type prefix; layer l edges are stored under
// the edge type named prefix followed by the decimal level.
func (b Builder) WithEdgeType(edgeType string) Builder {
	b.edgeType = edgeType
	return b
}

// WithIDProperty sets the vertex property carrying the external id. A
// unique secondary index over it enforces id uniqueness.
func (b Builder) WithIDProperty(name string) Builder {
	b.idPropertyName = name
	return b
}

// WithVectorProperty sets the vertex property carrying the vector.
func (b Builder) WithVectorProperty(name string) Builder {
	b.vectorPropertyName = name
	return b
}

// WithCache enables the decoded-vertex LRU cache with the given capacity.
func (b Builder) WithCache(size int) Builder {
	b.cacheSize = size
	return b
}

// WithDistanceComparator overrides the distance order. The comparator must
// be registered to survive a descriptor round trip, and must be consistent
// with the natural float order on the distances it sees, which the
// candidate heaps use internally.
func (b Builder) WithDistanceComparator(cmp distance.Comparator) Builder {
	b.distanceCmp = cmp
	return b
}

// WithM sets the number of bidirectional links created per element.
// Reasonable range is 2-100; 12-48 covers most use cases. The base layer
// allows 2*m.
func (b Builder) WithM(m int) Builder {
	b.m = m
	return b
}

// WithEf sets the query-time candidate list size. Larger is more accurate
// and slower; mutable later via SetEf.
func (b Builder) WithEf(ef int) Builder {
	b.ef = ef
	return b
}

// WithEfConstruction sets the construction-time candidate list size.
// Values below m are raised to m.
func (b Builder) WithEfConstruction(efConstruction int) Builder {
	b.efConstruction = efConstruction
	return b
}

// WithTransactionBatchSize sets the batch size for bulk-import
// transactions.
func (b Builder) WithTransactionBatchSize(size int) Builder {
	b.transactionBatchSize = size
	return b
}

// WithLogger sets the structured logger.
func (b Builder) WithLogger(logger *Logger) Builder {
	b.logger = logger
	return b
}

// WithMetrics sets the metrics collector.
func (b Builder) WithMetrics(metrics MetricsCollector) Builder {
	b.metrics = metrics
	return b
}

// WithImportRateLimit throttles bulk-import batch commits to the given
// number per second. Zero disables throttling.
func (b Builder) WithImportRateLimit(batchesPerSecond float64) Builder {
	b.batchesPerS = batchesPerSecond
	return b
}

// Build creates the index: schema and unique secondary index first, then,
// when seeded from an origin, the bulk import.
func (b Builder) Build(ctx context.Context) (*Index, error) {
	if b.db == nil {
		return nil, ErrNoDatabase
	}

	m := b.m
	if m <= 0 {
		m = DefaultM
	}
	efConstruction := b.efConstruction
	if efConstruction < m {
		efConstruction = m
	}

	logger := b.logger
	if logger == nil {
		logger = NoopLogger()
	}
	metrics := b.metrics
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	ix := &Index{
		dimensions:           b.dimensions,
		maxItemCount:         b.maxItemCount,
		m:                    m,
		maxM:                 m,
		maxM0:                2 * m,
		levelLambda:          level.Lambda(m),
		efConstruction:       efConstruction,
		distanceFunc:         b.distanceFunc,
		distanceCmp:          b.distanceCmp,
		transactionBatchSize: b.transactionBatchSize,
		vertexType:           b.vertexType,
		edgeType:             b.edgeType,
		idPropertyName:       b.idPropertyName,
		vectorPropertyName:   b.vectorPropertyName,
		adapter: graph.NewAdapter(b.db, b.vertexType, b.edgeType,
			b.idPropertyName, b.vectorPropertyName, b.cacheSize),
		excluded: excluded.New(),
		logger:   logger,
		metrics:  metrics,
	}
	ix.ef.Store(int64(b.ef))

	if b.batchesPerS > 0 {
		ix.limiter = rate.NewLimiter(rate.Limit(b.batchesPerS), 1)
	}

	if err := ix.adapter.EnsureSchema(); err != nil {
		return nil, err
	}

	if b.origin != nil {
		if err := ix.importOrigin(ctx, b.origin); err != nil {
			return nil, err
		}
	}

	return ix, nil
}
