package compare

import (
	"fmt"
	"math"
)

// NormalizedMutualInfo calculates normalized mutual information between
// two cluster assignments over the same cells. Returns a score in [0, 1];
// two single-cluster assignments count as identical.
func NormalizedMutualInfo(a, b []string) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("assignments must have the same length: %d vs %d", len(a), len(b))
	}
	n := len(a)
	if n == 0 {
		return 0, nil
	}

	// Contingency table and marginals.
	joint := make(map[string]map[string]int)
	countsA := make(map[string]int)
	countsB := make(map[string]int)
	for i := 0; i < n; i++ {
		if joint[a[i]] == nil {
			joint[a[i]] = make(map[string]int)
		}
		joint[a[i]][b[i]]++
		countsA[a[i]]++
		countsB[b[i]]++
	}

	mi := 0.0
	for ca, row := range joint {
		for cb, nij := range row {
			if nij == 0 {
				continue
			}
			mi += float64(nij) / float64(n) *
				math.Log2(float64(nij*n)/float64(countsA[ca]*countsB[cb]))
		}
	}

	avgEntropy := (entropy(countsA, n) + entropy(countsB, n)) / 2
	if avgEntropy == 0 {
		return 1, nil
	}
	return mi / avgEntropy, nil
}

func entropy(counts map[string]int, n int) float64 {
	h := 0.0
	for _, count := range counts {
		p := float64(count) / float64(n)
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}
