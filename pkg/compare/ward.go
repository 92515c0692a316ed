package compare

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// WardOrder returns a leaf ordering of the rows of m from agglomerative
// hierarchical clustering with Ward linkage, so that similar rows end up
// adjacent on heatmap axes. Distances are Euclidean between rows.
func WardOrder(m *mat.Dense) []int {
	n, _ := m.Dims()
	if n <= 2 {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order
	}

	// Squared Euclidean distances; Ward updates via Lance-Williams.
	dist := make([][]float64, n)
	for i := 0; i < n; i++ {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		ri := m.RawRowView(i)
		for j := i + 1; j < n; j++ {
			rj := m.RawRowView(j)
			sum := 0.0
			for d := range ri {
				diff := ri[d] - rj[d]
				sum += diff * diff
			}
			dist[i][j] = sum
			dist[j][i] = sum
		}
	}

	type cluster struct {
		size  int
		order []int // leaf order within the cluster
	}

	active := make(map[int]*cluster, n)
	for i := 0; i < n; i++ {
		active[i] = &cluster{size: 1, order: []int{i}}
	}

	for len(active) > 1 {
		// Find the closest active pair. Candidates are scanned in sorted
		// index order so exact distance ties resolve the same way on
		// every run.
		indices := make([]int, 0, len(active))
		for i := range active {
			indices = append(indices, i)
		}
		sort.Ints(indices)

		bestI, bestJ := -1, -1
		bestD := math.Inf(1)
		for a, i := range indices {
			for _, j := range indices[a+1:] {
				if dist[i][j] < bestD {
					bestD = dist[i][j]
					bestI, bestJ = i, j
				}
			}
		}

		ci, cj := active[bestI], active[bestJ]
		merged := &cluster{
			size:  ci.size + cj.size,
			order: append(append([]int(nil), ci.order...), cj.order...),
		}

		// Lance-Williams update for Ward linkage: the merged cluster
		// reuses slot bestI.
		for k := range active {
			if k == bestI || k == bestJ {
				continue
			}
			ck := active[k]
			ai := float64(ci.size+ck.size) / float64(merged.size+ck.size)
			aj := float64(cj.size+ck.size) / float64(merged.size+ck.size)
			beta := -float64(ck.size) / float64(merged.size+ck.size)
			d := ai*dist[bestI][k] + aj*dist[bestJ][k] + beta*dist[bestI][bestJ]
			dist[bestI][k] = d
			dist[k][bestI] = d
		}

		delete(active, bestJ)
		active[bestI] = merged
	}

	for _, c := range active {
		return c.order
	}
	return nil
}
