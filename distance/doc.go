// Package distance provides the distance functions and comparators used by
// graphvec indexes, together with a string-keyed registry so that persisted
// descriptors can name their distance function and have it resolved on load.
package distance
