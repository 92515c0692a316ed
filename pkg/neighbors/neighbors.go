// Package neighbors builds the weighted cell-similarity graph clustered
// downstream: exact k-nearest neighbors over the leading components of a
// reduction, with distance-derived edge weights.
package neighbors

import (
	"fmt"
	"math"
	"sort"

	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
	"github.com/gilchrisn/scrna-analysis-service/pkg/louvain"
)

// KNNGraph computes the exact k-nearest-neighbor graph of all cells over
// the leading dims components of the named reduction. Edges are
// undirected; a pair connected in either direction gets one edge with
// weight 1/(1+d). The construction is deterministic: ties on distance
// break on cell index.
func KNNGraph(ds *dataset.Dataset, reduction string, dims, k int) (*louvain.Graph, error) {
	source, err := ds.Reduction(reduction)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("neighbor count must be positive: %d", k)
	}

	nCells, nComp := source.Dims()
	if dims <= 0 || dims > nComp {
		dims = nComp
	}
	if k >= nCells {
		k = nCells - 1
	}
	if k == 0 {
		return nil, fmt.Errorf("dataset has too few cells for a neighbor graph: %d", nCells)
	}

	type candidate struct {
		index int
		dist  float64
	}

	edges := make(map[[2]int]float64)
	candidates := make([]candidate, 0, nCells-1)

	for i := 0; i < nCells; i++ {
		ri := source.RawRowView(i)[:dims]
		candidates = candidates[:0]
		for j := 0; j < nCells; j++ {
			if j == i {
				continue
			}
			rj := source.RawRowView(j)[:dims]
			sum := 0.0
			for d := 0; d < dims; d++ {
				diff := ri[d] - rj[d]
				sum += diff * diff
			}
			candidates = append(candidates, candidate{index: j, dist: math.Sqrt(sum)})
		}

		sort.Slice(candidates, func(a, b int) bool {
			if candidates[a].dist != candidates[b].dist {
				return candidates[a].dist < candidates[b].dist
			}
			return candidates[a].index < candidates[b].index
		})

		for _, c := range candidates[:k] {
			key := [2]int{i, c.index}
			if c.index < i {
				key = [2]int{c.index, i}
			}
			weight := 1 / (1 + c.dist)
			if existing, ok := edges[key]; !ok || weight > existing {
				edges[key] = weight
			}
		}
	}

	graph := louvain.NewGraph(nCells)
	// Insert in sorted key order so the adjacency layout is reproducible.
	keys := make([][2]int, 0, len(edges))
	for key := range edges {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a][0] != keys[b][0] {
			return keys[a][0] < keys[b][0]
		}
		return keys[a][1] < keys[b][1]
	})
	for _, key := range keys {
		if err := graph.AddEdge(key[0], key[1], edges[key]); err != nil {
			return nil, err
		}
	}

	return graph, nil
}
