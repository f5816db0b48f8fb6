// Package graph defines the storage-engine contract the index is built on
// and the adapter that maps index concepts (external ids, vectors, layer
// adjacency) onto vertices, properties and typed edges.
//
// The engine itself is external: any implementation of Store works. An
// in-memory engine is included for tests, examples and embedded use.
package graph
