// Package graphvec provides a persistent, graph-backed HNSW index for
// approximate nearest-neighbor search.
//
// Indexed items are vertices of a property graph; HNSW layer adjacency is
// materialized as typed directed edges, one edge type per layer. The index
// supports concurrent insertion and k-NN queries against a pluggable
// distance function, can be seeded by bulk-importing an in-memory build
// (package hnsw), and serializes as a compact parameter descriptor — the
// graph itself lives in the storage engine.
//
// Basic usage:
//
//	db := graph.NewMemoryStore()
//	index, err := graphvec.NewBuilder(128, distance.Euclidean, 1_000_000).
//		WithDatabase(db).
//		WithM(16).
//		WithEfConstruction(200).
//		Build(ctx)
//	if err != nil { ... }
//
//	id, err := index.Insert("doc-1", vector)
//	results, err := index.FindNearest(query, 10)
package graphvec
