package graphvec

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/graphvec/graph"
	"github.com/hupe1980/graphvec/hnsw"
)

// importOrigin rehydrates a pre-built in-memory HNSW into the persistent
// graph. It runs in three passes — vertices, edge types, edges — with
// Begin/Commit around every transactionBatchSize items. Single-threaded;
// not concurrent with online inserts.
func (ix *Index) importOrigin(ctx context.Context, origin *hnsw.HNSW) error {
	start := time.Now()
	store := ix.adapter.Store()

	mapping := make([]graph.VertexID, origin.Len())

	ix.logger.Info("saving items as vertices", "batch", ix.transactionBatchSize, "total", origin.Len())

	if err := store.Begin(); err != nil {
		return err
	}

	var (
		importErr      error
		globalMaxLevel int
		txCounter      int
	)
	origin.Nodes(func(n *hnsw.Node) bool {
		if n.Layer > globalMaxLevel {
			globalMaxLevel = n.Layer
		}

		// vectorMaxLevel is written only when > 0; absent means 0.
		id, err := ix.adapter.CreateVertex(n.Key, n.Vector, n.Layer)
		if err != nil {
			importErr = err
			return false
		}
		mapping[n.ID] = id

		txCounter++
		if txCounter%ix.transactionBatchSize == 0 {
			if importErr = ix.commitBatch(ctx, store); importErr != nil {
				return false
			}
			ix.logger.Info("saved items as vertices", "count", txCounter)
		}
		return true
	})
	if importErr != nil {
		return importErr
	}
	if err := store.Commit(); err != nil {
		return err
	}

	if epID, ok := origin.EntryPoint(); ok {
		ix.entryPoint.Store(uint64(mapping[epID]))
	}

	ix.logger.Info("all items saved", "maxLevel", globalMaxLevel)

	for lvl := 0; lvl <= globalMaxLevel; lvl++ {
		if err := ix.adapter.EnsureEdgeType(lvl); err != nil {
			return err
		}
	}

	ix.logger.Info("connecting items with edges", "batch", ix.transactionBatchSize)

	if err := store.Begin(); err != nil {
		return err
	}

	totalEdges := 0
	txCounter = 0
	origin.Nodes(func(n *hnsw.Node) bool {
		source := mapping[n.ID]

		for lvl, pointers := range n.Connections {
			// The origin guarantees no duplicates per list, so edges go in
			// as-is.
			for _, pointer := range pointers {
				if err := ix.adapter.AddEdge(source, mapping[pointer], lvl); err != nil {
					importErr = err
					return false
				}
				totalEdges++
			}
		}

		txCounter++
		if txCounter%ix.transactionBatchSize == 0 {
			if importErr = ix.commitBatch(ctx, store); importErr != nil {
				return false
			}
			ix.logger.Info("connected items", "count", txCounter, "edges", totalEdges)
		}
		return true
	})
	if importErr != nil {
		return importErr
	}
	if err := store.Commit(); err != nil {
		return err
	}

	if ix.metrics != nil {
		ix.metrics.RecordImport(origin.Len(), totalEdges, time.Since(start))
	}
	ix.logger.Info("import complete", "vertices", origin.Len(), "edges", totalEdges)

	return nil
}

// commitBatch closes the current batch and opens the next one, honoring the
// optional rate limit between batches.
func (ix *Index) commitBatch(ctx context.Context, store graph.Store) error {
	if err := store.Commit(); err != nil {
		return err
	}
	if ix.limiter != nil {
		if err := ix.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("import throttled: %w", err)
		}
	}
	return store.Begin()
}
