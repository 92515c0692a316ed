// Package reduction computes dimensionality reductions over the scaled
// expression matrix: PCA for the working component space, a classical MDS
// 2D embedding for visualization, and component subsetting for the
// PC-exclusion analysis.
package reduction

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
)

// PCAKey is the reduction name under which PCA scores are stored.
const PCAKey = "pca"

// PCA computes a fixed-rank principal component analysis of the scaled
// variable-gene matrix and stores the per-cell score matrix under "pca",
// along with per-component explained variances. The effective rank is
// capped by the data dimensions.
func PCA(ds *dataset.Dataset, nComponents int) error {
	if ds.Scaled == nil {
		return fmt.Errorf("dataset has no scaled layer")
	}
	if nComponents <= 0 {
		return fmt.Errorf("number of components must be positive: %d", nComponents)
	}

	nCells, nFeatures := ds.Scaled.Dims()
	if nCells < 2 {
		return fmt.Errorf("PCA needs at least 2 cells, got %d", nCells)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(ds.Scaled, nil); !ok {
		return fmt.Errorf("principal component decomposition failed")
	}

	var vectors mat.Dense
	pc.VectorsTo(&vectors)
	variances := pc.VarsTo(nil)

	_, rank := vectors.Dims()
	k := nComponents
	if k > rank {
		k = rank
	}

	// stat.PC centers internally when computing the basis; the projection
	// has to use the same centering.
	centered := centerColumns(ds.Scaled)

	var scores mat.Dense
	scores.Mul(centered, vectors.Slice(0, nFeatures, 0, k))

	out := mat.NewDense(nCells, k, nil)
	out.Copy(&scores)
	if err := ds.SetReduction(PCAKey, out); err != nil {
		return err
	}
	ds.PCVariance = append([]float64(nil), variances[:k]...)
	return nil
}

func centerColumns(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		mean := stat.Mean(col, nil)
		for i := 0; i < r; i++ {
			out.Set(i, j, col[i]-mean)
		}
	}
	return out
}
