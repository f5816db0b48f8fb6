package hnsw

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSnapshotFixture(t *testing.T) *HNSW {
	t.Helper()

	h := New(8, func(o *Options) {
		o.M = 6
		o.EFConstruction = 50
	})
	for i, v := range GenerateRandomVectors(100, 8, 11) {
		_, err := h.Insert(fmt.Sprintf("v-%d", i), v)
		require.NoError(t, err)
	}
	return h
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, compression := range []Compression{CompressionZstd, CompressionLZ4} {
		h := buildSnapshotFixture(t)

		var buf bytes.Buffer
		require.NoError(t, h.WriteSnapshot(&buf, compression))

		restored, err := ReadSnapshot(&buf)
		require.NoError(t, err)

		assert.Equal(t, h.Len(), restored.Len())
		assert.Equal(t, h.Dimensions(), restored.Dimensions())
		assert.Equal(t, h.M(), restored.M())

		ep, ok := h.EntryPoint()
		require.True(t, ok)
		rep, ok := restored.EntryPoint()
		require.True(t, ok)
		assert.Equal(t, ep, rep)

		// Searches agree after restore.
		q := GenerateRandomVectors(1, 8, 99)[0]
		want, err := h.KNNSearch(q, 5, 50)
		require.NoError(t, err)
		got, err := restored.KNNSearch(q, 5, 50)
		require.NoError(t, err)

		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].Node.ID, got[i].Node.ID)
		}
	}
}

func TestSnapshotBadMagic(t *testing.T) {
	_, err := ReadSnapshot(bytes.NewReader([]byte("nope-not-a-snapshot")))
	assert.Error(t, err)
}

func TestSnapshotUnregisteredDistance(t *testing.T) {
	h := New(2, func(o *Options) {
		o.DistanceFunc = func(a, b []float32) float32 { return 0 }
	})

	var buf bytes.Buffer
	assert.Error(t, h.WriteSnapshot(&buf, CompressionZstd))
}
