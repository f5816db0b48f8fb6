// Package level assigns HNSW levels deterministically from external ids.
//
// Seeding the level by the id rather than a thread-local PRNG makes bulk
// builds reproducible across runs and across re-inserts of the same id
// (see nmslib/hnswlib#28).
package level

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/spaolacci/murmur3"
)

// Assign derives the layer for the given external id. The id is reduced to a
// stable 32-bit hash, rehashed with MurmurHash3 and mapped through the
// geometric distribution floor(-ln(u) * lambda).
func Assign(id string, lambda float64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))

	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], h.Sum32())

	u := math.Abs(float64(int32(murmur3.Sum32(buf[:]))) / (1 << 31))
	if u == 0 {
		// -ln(0) diverges; clamp to the smallest representable draw.
		u = 1.0 / (1 << 31)
	}

	return int(math.Floor(-math.Log(u) * lambda))
}

// Lambda returns the level normalization factor 1/ln(m).
func Lambda(m int) float64 {
	return 1 / math.Log(float64(m))
}
