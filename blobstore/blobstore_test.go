package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "a", []byte("one")))

	data, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), data)

	// Overwrite.
	require.NoError(t, s.Put(ctx, "a", []byte("two")))
	data, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent blob is fine.
	assert.NoError(t, s.Delete(ctx, "a"))
}

func TestMemory(t *testing.T) {
	testStore(t, NewMemory())
}

func TestMemoryCopiesData(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	src := []byte("abc")
	require.NoError(t, s.Put(ctx, "a", src))
	src[0] = 'x'

	data, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)
}

func TestLocal(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	testStore(t, s)
}
