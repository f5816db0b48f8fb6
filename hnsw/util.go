package hnsw

import "math/rand"

// GenerateRandomVectors produces num seeded random vectors for fixtures and
// benchmarks.
func GenerateRandomVectors(num, dimensions int, seed int64) [][]float32 {
	r := rand.New(rand.NewSource(seed))

	vectors := make([][]float32, num)
	for i := range vectors {
		vectors[i] = make([]float32, dimensions)
		for j := range vectors[i] {
			vectors[i][j] = r.Float32()
		}
	}
	return vectors
}
