// Package testutil provides seeded fixtures and exact-search oracles shared
// by the package tests.
package testutil

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/hupe1980/graphvec/distance"
)

// Item is a keyed fixture vector.
type Item struct {
	Key    string
	Vector []float32
}

// GenerateItems produces num seeded random vectors keyed "v-0" .. "v-<num-1>".
func GenerateItems(num, dimensions int, seed int64) []Item {
	r := rand.New(rand.NewSource(seed))

	items := make([]Item, num)
	for i := range items {
		vec := make([]float32, dimensions)
		for j := range vec {
			vec[j] = r.Float32()
		}
		items[i] = Item{Key: fmt.Sprintf("v-%d", i), Vector: vec}
	}
	return items
}

// ExactNearest returns the keys of the k exact nearest items to q,
// ascending by distance with ties broken by key.
func ExactNearest(items []Item, q []float32, k int, fn distance.Func) []string {
	type scored struct {
		key  string
		dist float32
	}

	scoredItems := make([]scored, len(items))
	for i, item := range items {
		scoredItems[i] = scored{key: item.Key, dist: fn(q, item.Vector)}
	}

	sort.Slice(scoredItems, func(i, j int) bool {
		if scoredItems[i].dist != scoredItems[j].dist {
			return scoredItems[i].dist < scoredItems[j].dist
		}
		return scoredItems[i].key < scoredItems[j].key
	})

	if k > len(scoredItems) {
		k = len(scoredItems)
	}
	keys := make([]string, k)
	for i := 0; i < k; i++ {
		keys[i] = scoredItems[i].key
	}
	return keys
}
