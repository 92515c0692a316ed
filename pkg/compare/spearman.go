package compare

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Spearman computes the Spearman rank correlation between two vectors.
func Spearman(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("vectors have different lengths: %d vs %d", len(x), len(y))
	}
	if len(x) < 2 {
		return 0, fmt.Errorf("need at least 2 values, got %d", len(x))
	}
	return stat.Correlation(ranks(x), ranks(y), nil), nil
}

// SpearmanMatrix correlates every row of a against every row of b. Both
// matrices must share the same column space (the reference gene set);
// the result is rows(a) x rows(b) with entries in [-1, 1].
func SpearmanMatrix(a, b *mat.Dense) (*mat.Dense, error) {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ca != cb {
		return nil, fmt.Errorf("profile matrices have different gene counts: %d vs %d", ca, cb)
	}

	// Rank rows once; the pairwise loop then reduces to Pearson on ranks.
	ranksA := make([][]float64, ra)
	for i := 0; i < ra; i++ {
		ranksA[i] = ranks(a.RawRowView(i))
	}
	ranksB := make([][]float64, rb)
	for i := 0; i < rb; i++ {
		ranksB[i] = ranks(b.RawRowView(i))
	}

	out := mat.NewDense(ra, rb, nil)
	for i := 0; i < ra; i++ {
		for j := 0; j < rb; j++ {
			out.Set(i, j, stat.Correlation(ranksA[i], ranksB[j], nil))
		}
	}
	return out, nil
}

// ranks returns fractional ranks (ties share their average rank).
func ranks(values []float64) []float64 {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[order[j+1]] == values[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[order[k]] = avg
		}
		i = j + 1
	}
	return out
}
