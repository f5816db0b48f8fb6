// Package blobstore abstracts where descriptor and snapshot blobs live:
// memory, local disk, or S3-compatible object storage.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = errors.New("blobstore: not found")

// Store reads and writes whole blobs. Payloads here are small and
// immutable (parameter descriptors, origin snapshots), so the interface is
// whole-value rather than streaming. Implementations must be safe for
// concurrent use.
type Store interface {
	// Put writes a blob, replacing any previous content atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads a blob; ErrNotFound when absent.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes a blob; deleting an absent blob is not an error.
	Delete(ctx context.Context, name string) error
}
