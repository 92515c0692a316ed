package reduction

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/mds"

	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
)

// EmbedKey is the default reduction name for the 2D embedding.
const EmbedKey = "mds"

// Embed2D computes a 2D visualization embedding by classical MDS
// (Torgerson scaling) over Euclidean distances in the leading dims
// components of the source reduction, and stores it under the given
// name. If the source has fewer than dims components, all of them are
// used.
func Embed2D(ds *dataset.Dataset, from, to string, dims int) error {
	source, err := ds.Reduction(from)
	if err != nil {
		return err
	}
	if dims <= 0 {
		return fmt.Errorf("embedding dimensionality must be positive: %d", dims)
	}

	nCells, nComp := source.Dims()
	if dims > nComp {
		dims = nComp
	}

	if nCells == 1 {
		// Single cell sits at the origin.
		return ds.SetReduction(to, mat.NewDense(1, 2, []float64{0, 0}))
	}

	dist := distanceMatrix(source, dims)

	// TorgersonScaling resizes coords to nCells x k on success.
	var coords mat.Dense
	k, _ := mds.TorgersonScaling(&coords, nil, dist)
	if k == 0 {
		return fmt.Errorf("MDS found no positive eigenvalues")
	}

	// Keep the first two coordinate columns, padding with zeros when the
	// scaling produced fewer.
	_, cols := coords.Dims()
	out := mat.NewDense(nCells, 2, nil)
	for i := 0; i < nCells; i++ {
		for j := 0; j < 2 && j < cols; j++ {
			out.Set(i, j, coords.At(i, j))
		}
	}

	return ds.SetReduction(to, out)
}

// distanceMatrix computes pairwise Euclidean distances over the leading
// dims columns of a score matrix.
func distanceMatrix(scores *mat.Dense, dims int) *mat.SymDense {
	n, _ := scores.Dims()
	dist := mat.NewSymDense(n, nil)

	for i := 0; i < n; i++ {
		ri := scores.RawRowView(i)[:dims]
		for j := i + 1; j < n; j++ {
			rj := scores.RawRowView(j)[:dims]
			sum := 0.0
			for d := 0; d < dims; d++ {
				diff := ri[d] - rj[d]
				sum += diff * diff
			}
			dist.SetSym(i, j, math.Sqrt(sum))
		}
	}
	return dist
}
