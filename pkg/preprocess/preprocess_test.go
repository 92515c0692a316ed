package preprocess

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
)

func countsDataset(t *testing.T, cells, genes int, fill func(i, j int) float64) *dataset.Dataset {
	t.Helper()
	cellIDs := make([]string, cells)
	geneIDs := make([]string, genes)
	raw := mat.NewDense(cells, genes, nil)
	for i := 0; i < cells; i++ {
		cellIDs[i] = "c" + string(rune('A'+i%26)) + string(rune('a'+i/26))
	}
	for j := 0; j < genes; j++ {
		geneIDs[j] = "g" + string(rune('A'+j%26)) + string(rune('a'+j/26))
	}
	for i := 0; i < cells; i++ {
		for j := 0; j < genes; j++ {
			raw.Set(i, j, fill(i, j))
		}
	}
	ds, err := dataset.New(cellIDs, geneIDs, raw)
	require.NoError(t, err)
	return ds
}

func TestNormalizeTotal(t *testing.T) {
	ds := countsDataset(t, 4, 5, func(i, j int) float64 {
		return float64(i + j + 1)
	})

	require.NoError(t, NormalizeTotal(ds, 100))
	require.NotNil(t, ds.Norm)

	// De-logged rows must sum to the target.
	for i := 0; i < ds.NCells(); i++ {
		total := 0.0
		for j := 0; j < ds.NGenes(); j++ {
			total += math.Expm1(ds.Norm.At(i, j))
		}
		require.InDelta(t, 100, total, 1e-9)
	}

	// Raw layer untouched.
	require.Equal(t, 1.0, ds.Raw.At(0, 0))
}

func TestNormalizeTotalRejectsEmptyCell(t *testing.T) {
	ds := countsDataset(t, 2, 3, func(i, j int) float64 {
		if i == 1 {
			return 0
		}
		return 1
	})
	require.Error(t, NormalizeTotal(ds, 100))
}

func TestNormalizeTotalRejectsBadTarget(t *testing.T) {
	ds := countsDataset(t, 2, 2, func(i, j int) float64 { return 1 })
	require.Error(t, NormalizeTotal(ds, 0))
	require.Error(t, NormalizeTotal(ds, -5))
}

func TestSelectVariableGenes(t *testing.T) {
	// Gene 0 swings between 0 and 40 across cells; the rest share one
	// flat background profile, so gene 0 must rank first.
	ds := countsDataset(t, 40, 25, func(i, j int) float64 {
		if j == 0 {
			if i%2 == 0 {
				return 40
			}
			return 0
		}
		return 5
	})
	require.NoError(t, NormalizeTotal(ds, 1e4))

	selected, err := SelectVariableGenes(ds, 5)
	require.NoError(t, err)
	require.Len(t, selected, 5)
	require.Equal(t, ds.GeneIDs[0], selected[0])
	require.Equal(t, selected, ds.VariableGenes)

	// Per-gene stats recorded for every gene.
	require.Len(t, ds.GeneStats["mean"], 25)
	require.Len(t, ds.GeneStats["dispersion_norm"], 25)
}

func TestSelectVariableGenesValidation(t *testing.T) {
	ds := countsDataset(t, 4, 4, func(i, j int) float64 { return float64(i + 1) })

	_, err := SelectVariableGenes(ds, 2)
	require.Error(t, err, "unnormalized dataset must be rejected")

	require.NoError(t, NormalizeTotal(ds, 1e4))
	_, err = SelectVariableGenes(ds, 0)
	require.Error(t, err)
	_, err = SelectVariableGenes(ds, 5)
	require.Error(t, err, "cannot select more genes than exist")
}

func TestSelectVariableGenesIsStable(t *testing.T) {
	ds := countsDataset(t, 30, 20, func(i, j int) float64 {
		return float64((i*j)%7 + 1)
	})
	require.NoError(t, NormalizeTotal(ds, 1e4))

	first, err := SelectVariableGenes(ds, 8)
	require.NoError(t, err)
	second, err := SelectVariableGenes(ds, 8)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestScale(t *testing.T) {
	ds := countsDataset(t, 30, 10, func(i, j int) float64 {
		return float64((i+j)%5 + 1)
	})
	require.NoError(t, NormalizeTotal(ds, 1e4))
	_, err := SelectVariableGenes(ds, 4)
	require.NoError(t, err)

	require.NoError(t, Scale(ds, DefaultScaleOptions()))
	require.NotNil(t, ds.Scaled)

	r, c := ds.Scaled.Dims()
	require.Equal(t, 30, r)
	require.Equal(t, 4, c)

	// The default path keeps values non-negative and clips at 10.
	for i := 0; i < r; i++ {
		for k := 0; k < c; k++ {
			v := ds.Scaled.At(i, k)
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 10.0)
		}
	}
}

func TestScaleCentering(t *testing.T) {
	ds := countsDataset(t, 20, 6, func(i, j int) float64 {
		return float64(i%4 + j + 1)
	})
	require.NoError(t, NormalizeTotal(ds, 1e4))
	_, err := SelectVariableGenes(ds, 3)
	require.NoError(t, err)

	// Centered without clipping: every column has zero mean and unit
	// sample variance.
	require.NoError(t, Scale(ds, ScaleOptions{Center: true, MaxValue: 0}))

	r, c := ds.Scaled.Dims()
	col := make([]float64, r)
	for k := 0; k < c; k++ {
		mat.Col(col, k, ds.Scaled)
		mean := 0.0
		for _, v := range col {
			mean += v
		}
		mean /= float64(r)
		require.InDelta(t, 0, mean, 1e-9, "centered column %d has nonzero mean", k)

		variance := 0.0
		for _, v := range col {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(r - 1)
		require.InDelta(t, 1.0, variance, 1e-9, "column %d variance", k)
	}
}

func TestScaleRequiresSelection(t *testing.T) {
	ds := countsDataset(t, 4, 4, func(i, j int) float64 { return 1 })
	require.NoError(t, NormalizeTotal(ds, 1e4))
	require.Error(t, Scale(ds, DefaultScaleOptions()))
}
