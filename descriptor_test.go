package graphvec

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphvec/blobstore"
	"github.com/hupe1980/graphvec/codec"
	"github.com/hupe1980/graphvec/distance"
	"github.com/hupe1980/graphvec/graph"
	"github.com/hupe1980/graphvec/testutil"
)

func TestDescriptorFields(t *testing.T) {
	ix, _ := buildIndex(t, 8, func(b Builder) Builder {
		return b.WithM(12).WithEf(20).WithEfConstruction(150).
			WithVertexType("Doc").WithEdgeType("DocEdge").
			WithIDProperty("docId").WithVectorProperty("embedding")
	})

	desc := ix.Descriptor()

	assert.Equal(t, 0, desc.Version)
	assert.Equal(t, 8, desc.Dimensions)
	assert.Equal(t, "Euclidean", desc.DistanceFunction)
	assert.Equal(t, "Natural", desc.DistanceComparator)
	assert.Equal(t, 1000, desc.MaxItemCount)
	assert.Equal(t, 12, desc.M)
	assert.Equal(t, 12, desc.MaxM)
	assert.Equal(t, 24, desc.MaxM0)
	assert.InDelta(t, ix.levelLambda, desc.LevelLambda, 1e-12)
	assert.Equal(t, 20, desc.Ef)
	assert.Equal(t, 150, desc.EfConstruction)
	assert.Equal(t, "", desc.EntryPoint)
	assert.Equal(t, "Doc", desc.VertexType)
	assert.Equal(t, "DocEdge", desc.EdgeType)
	assert.Equal(t, "docId", desc.IDPropertyName)
	assert.Equal(t, "embedding", desc.VectorPropertyName)
}

func TestDescriptorJSONKeys(t *testing.T) {
	ix, _ := buildIndex(t, 2)

	data, err := ix.MarshalDescriptor()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, (codec.JSON{}).Unmarshal(data, &raw))

	for _, key := range []string{
		"version", "dimensions", "distanceFunction", "distanceComparator",
		"maxItemCount", "m", "maxM", "maxM0", "levelLambda", "ef",
		"efConstruction", "entryPoint", "vertexType", "edgeType",
		"idPropertyName", "vectorPropertyName",
	} {
		_, ok := raw[key]
		assert.True(t, ok, "missing key %q", key)
	}
	assert.Equal(t, float64(0), raw["version"])
}

func TestOpenIndexRoundTrip(t *testing.T) {
	ix, db := buildIndex(t, 4, func(b Builder) Builder {
		return b.WithM(6).WithEf(25).WithEfConstruction(80)
	})

	for _, item := range testutil.GenerateItems(30, 4, 3) {
		_, err := ix.Insert(item.Key, item.Vector)
		require.NoError(t, err)
	}

	data, err := ix.MarshalDescriptor()
	require.NoError(t, err)

	reopened, err := OpenIndex(db, data)
	require.NoError(t, err)

	assert.Equal(t, ix.Dimensions(), reopened.Dimensions())
	assert.Equal(t, ix.M(), reopened.M())
	assert.Equal(t, ix.Ef(), reopened.Ef())
	assert.Equal(t, ix.EfConstruction(), reopened.EfConstruction())
	assert.Equal(t, ix.levelLambda, reopened.levelLambda)

	wantEp, ok := ix.EntryPoint()
	require.True(t, ok)
	gotEp, ok := reopened.EntryPoint()
	require.True(t, ok)
	assert.Equal(t, wantEp, gotEp)

	// The reopened index answers queries and accepts inserts.
	d, err := reopened.Get("v-7")
	require.NoError(t, err)
	require.NotNil(t, d)

	results, err := reopened.FindNearest(d.Vector, 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "v-7", results[0].Vertex.Key)

	_, err = reopened.Insert("post-reopen", []float32{0.5, 0.5, 0.5, 0.5})
	require.NoError(t, err)
}

func TestOpenIndexUnknownDistance(t *testing.T) {
	ix, db := buildIndex(t, 2)

	desc := ix.Descriptor()
	desc.DistanceFunction = "NoSuchDistance"
	data, err := codec.Default.Marshal(desc)
	require.NoError(t, err)

	_, err = OpenIndex(db, data)
	var unknown *ErrUnknownDistance
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "NoSuchDistance", unknown.Name)
}

func TestOpenIndexUnknownComparator(t *testing.T) {
	ix, db := buildIndex(t, 2)

	desc := ix.Descriptor()
	desc.DistanceComparator = "Reversed"
	data, err := codec.Default.Marshal(desc)
	require.NoError(t, err)

	_, err = OpenIndex(db, data)
	var unknown *ErrUnknownComparator
	assert.ErrorAs(t, err, &unknown)
}

func TestOpenIndexEntryPointParsing(t *testing.T) {
	ix, db := buildIndex(t, 2)

	id, err := ix.Insert("a", []float32{1, 1})
	require.NoError(t, err)

	desc := ix.Descriptor()
	assert.Equal(t, strconv.FormatUint(uint64(id), 10), desc.EntryPoint)

	data, err := codec.Default.Marshal(desc)
	require.NoError(t, err)

	reopened, err := OpenIndex(db, data)
	require.NoError(t, err)

	ep, ok := reopened.EntryPoint()
	require.True(t, ok)
	assert.Equal(t, id, ep)
}

func TestOpenIndexRecreatesUniqueIndex(t *testing.T) {
	ix, _ := buildIndex(t, 2)

	// A fresh engine without the secondary index: open must recreate it.
	freshDB := graph.NewMemoryStore()

	desc := ix.Descriptor()
	desc.EntryPoint = ""
	data, err := codec.Default.Marshal(desc)
	require.NoError(t, err)

	reopened, err := OpenIndex(freshDB, data)
	require.NoError(t, err)

	_, err = reopened.Insert("a", []float32{1, 2})
	require.NoError(t, err)

	_, err = reopened.Insert("a", []float32{3, 4})
	assert.ErrorIs(t, err, graph.ErrUniqueViolation)
}

func TestSaveAndLoadViaBlobstore(t *testing.T) {
	ctx := context.Background()

	ix, db := buildIndex(t, 4, func(b Builder) Builder {
		return b.WithM(6)
	})
	for _, item := range testutil.GenerateItems(20, 4, 17) {
		_, err := ix.Insert(item.Key, item.Vector)
		require.NoError(t, err)
	}

	blobs := blobstore.NewMemory()
	require.NoError(t, ix.SaveDescriptor(ctx, blobs, "index.json"))

	reopened, err := LoadIndex(ctx, blobs, "index.json", db)
	require.NoError(t, err)

	d, err := reopened.Get("v-3")
	require.NoError(t, err)
	require.NotNil(t, d)

	_, err = LoadIndex(ctx, blobs, "missing.json", db)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestDescriptorDistanceRegistryRoundTrip(t *testing.T) {
	db := graph.NewMemoryStore()
	ix, err := NewBuilder(2, distance.Cosine, 10).WithDatabase(db).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Cosine", ix.Descriptor().DistanceFunction)

	data, err := ix.MarshalDescriptor()
	require.NoError(t, err)

	reopened, err := OpenIndex(db, data)
	require.NoError(t, err)
	assert.InDelta(t, float64(distance.Cosine([]float32{1, 0}, []float32{0, 1})),
		float64(reopened.DistanceFunc()([]float32{1, 0}, []float32{0, 1})), 1e-6)
}
