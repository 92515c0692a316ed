package compare

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
)

func TestSpearman(t *testing.T) {
	// Monotone but non-linear: rank correlation is exactly 1.
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1, 8, 27, 64, 125}
	rho, err := Spearman(x, y)
	require.NoError(t, err)
	require.InDelta(t, 1.0, rho, 1e-12)

	// Reversed order: exactly -1.
	rho, err = Spearman(x, []float64{5, 4, 3, 2, 1})
	require.NoError(t, err)
	require.InDelta(t, -1.0, rho, 1e-12)
}

func TestSpearmanTies(t *testing.T) {
	// One tie in each vector: ranks(x) = {1, 2.5, 2.5, 4} and
	// ranks(y) = {4, 1.5, 1.5, 3}, whose Pearson correlation is -1/3.
	rho, err := Spearman([]float64{1, 2, 2, 4}, []float64{3, 1, 1, 2})
	require.NoError(t, err)
	require.InDelta(t, -1.0/3.0, rho, 1e-9)
}

func TestSpearmanValidation(t *testing.T) {
	_, err := Spearman([]float64{1, 2}, []float64{1})
	require.Error(t, err)
	_, err = Spearman([]float64{1}, []float64{1})
	require.Error(t, err)
}

func TestRanks(t *testing.T) {
	require.Equal(t, []float64{2, 1, 3}, ranks([]float64{5, 1, 9}))
	require.Equal(t, []float64{1.5, 1.5, 3.5, 3.5}, ranks([]float64{2, 2, 7, 7}))
	require.Equal(t, []float64{2, 2, 2}, ranks([]float64{4, 4, 4}))
}

func TestSpearmanMatrix(t *testing.T) {
	a := mat.NewDense(2, 4, []float64{
		1, 2, 3, 4,
		4, 3, 2, 1,
	})
	b := mat.NewDense(3, 4, []float64{
		10, 20, 30, 40,
		40, 30, 20, 10,
		2, 9, 4, 30,
	})

	corr, err := SpearmanMatrix(a, b)
	require.NoError(t, err)
	r, c := corr.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 3, c)

	require.InDelta(t, 1.0, corr.At(0, 0), 1e-12)
	require.InDelta(t, -1.0, corr.At(0, 1), 1e-12)
	require.InDelta(t, -1.0, corr.At(1, 0), 1e-12)
	require.InDelta(t, 1.0, corr.At(1, 1), 1e-12)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			require.GreaterOrEqual(t, corr.At(i, j), -1.0)
			require.LessOrEqual(t, corr.At(i, j), 1.0)
		}
	}

	_, err = SpearmanMatrix(a, mat.NewDense(1, 3, nil))
	require.Error(t, err)
}

func TestNormalizedMutualInfo(t *testing.T) {
	a := []string{"0", "0", "1", "1", "2", "2"}

	// Identical assignments score 1, so does a pure relabeling.
	nmi, err := NormalizedMutualInfo(a, a)
	require.NoError(t, err)
	require.InDelta(t, 1.0, nmi, 1e-12)

	relabeled := []string{"x", "x", "y", "y", "z", "z"}
	nmi, err = NormalizedMutualInfo(a, relabeled)
	require.NoError(t, err)
	require.InDelta(t, 1.0, nmi, 1e-12)

	// A single-cluster assignment carries no information.
	flat := []string{"0", "0", "0", "0", "0", "0"}
	nmi, err = NormalizedMutualInfo(a, flat)
	require.NoError(t, err)
	require.InDelta(t, 0.0, nmi, 1e-12)

	// Two flat assignments are trivially identical.
	nmi, err = NormalizedMutualInfo(flat, flat)
	require.NoError(t, err)
	require.Equal(t, 1.0, nmi)

	_, err = NormalizedMutualInfo(a, a[:3])
	require.Error(t, err)
}

func TestNormalizedMutualInfoPartialOverlap(t *testing.T) {
	a := []string{"0", "0", "0", "1", "1", "1"}
	b := []string{"0", "0", "1", "1", "1", "1"}
	nmi, err := NormalizedMutualInfo(a, b)
	require.NoError(t, err)
	require.Greater(t, nmi, 0.0)
	require.Less(t, nmi, 1.0)
}

func TestWardOrder(t *testing.T) {
	// Rows 0 and 3 are close, rows 1 and 2 are close, the groups are far
	// apart. The ordering must keep each pair adjacent.
	m := mat.NewDense(4, 2, []float64{
		0, 0,
		100, 100,
		101, 101,
		1, 0,
	})

	order := WardOrder(m)
	require.Len(t, order, 4)

	seen := make(map[int]bool)
	for _, idx := range order {
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 4)
		seen[idx] = true
	}
	require.Len(t, seen, 4, "order must be a permutation")

	pos := make([]int, 4)
	for p, idx := range order {
		pos[idx] = p
	}
	require.Equal(t, 1, abs(pos[0]-pos[3]), "near rows 0 and 3 must be adjacent")
	require.Equal(t, 1, abs(pos[1]-pos[2]), "near rows 1 and 2 must be adjacent")
}

func TestWardOrderDeterministicUnderTies(t *testing.T) {
	// Identical rows make every merge distance an exact tie; the order
	// must still come out the same on every invocation.
	m := mat.NewDense(5, 3, nil)

	first := WardOrder(m)
	require.Len(t, first, 5)
	for i := 0; i < 50; i++ {
		require.Equal(t, first, WardOrder(m))
	}
}

func TestWardOrderSmall(t *testing.T) {
	require.Equal(t, []int{0}, WardOrder(mat.NewDense(1, 2, []float64{1, 2})))
	require.Equal(t, []int{0, 1}, WardOrder(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// clusteredDataset builds a normalized dataset with an assigned cluster
// column. Cluster "0" expresses the first half of the genes, cluster "1"
// the second half.
func clusteredDataset(t *testing.T, obsCol string, swap bool) *dataset.Dataset {
	t.Helper()
	const cells, genes = 12, 8

	cellIDs := make([]string, cells)
	labels := make([]string, cells)
	for i := range cellIDs {
		cellIDs[i] = fmt.Sprintf("cell%d", i)
		if i < cells/2 {
			labels[i] = "0"
		} else {
			labels[i] = "1"
		}
	}
	geneIDs := make([]string, genes)
	for j := range geneIDs {
		geneIDs[j] = fmt.Sprintf("gene%d", j)
	}

	raw := mat.NewDense(cells, genes, nil)
	norm := mat.NewDense(cells, genes, nil)
	for i := 0; i < cells; i++ {
		high := i < cells/2
		if swap {
			high = !high
		}
		for j := 0; j < genes; j++ {
			v := 0.1 + 0.01*float64(j)
			if (high && j < genes/2) || (!high && j >= genes/2) {
				v = 5 + 0.1*float64(j)
			}
			raw.Set(i, j, v)
			norm.Set(i, j, v)
		}
	}

	ds, err := dataset.New(cellIDs, geneIDs, raw)
	require.NoError(t, err)
	ds.Norm = norm
	require.NoError(t, ds.SetObs(obsCol, labels))
	return ds
}

func TestMeanExpressionByCluster(t *testing.T) {
	ds := clusteredDataset(t, "cluster", false)

	levels, profiles, err := MeanExpressionByCluster(ds, "cluster", ds.GeneIDs)
	require.NoError(t, err)
	require.Equal(t, []string{"0", "1"}, levels)

	r, c := profiles.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 8, c)

	// Cluster 0 averages high on the first half of the genes.
	require.Greater(t, profiles.At(0, 0), profiles.At(0, 4))
	require.Less(t, profiles.At(1, 0), profiles.At(1, 4))
	require.InDelta(t, 5.0, profiles.At(0, 0), 1e-9)
	require.InDelta(t, 0.1, profiles.At(1, 0), 1e-9)
}

func TestMeanExpressionByClusterValidation(t *testing.T) {
	ds := clusteredDataset(t, "cluster", false)

	_, _, err := MeanExpressionByCluster(ds, "missing", ds.GeneIDs)
	require.Error(t, err)

	_, _, err = MeanExpressionByCluster(ds, "cluster", nil)
	require.Error(t, err)

	_, _, err = MeanExpressionByCluster(ds, "cluster", []string{"nope"})
	require.Error(t, err)

	ds.Norm = nil
	_, _, err = MeanExpressionByCluster(ds, "cluster", ds.GeneIDs)
	require.Error(t, err)
}

func TestComparePair(t *testing.T) {
	dsA := clusteredDataset(t, "cluster", false)
	dsB := clusteredDataset(t, "cluster", true)

	pc, err := ComparePair(dsA, dsB, "runA", "runB", "cluster", dsA.GeneIDs)
	require.NoError(t, err)
	require.Equal(t, "runA", pc.LabelA)
	require.Equal(t, "runB", pc.LabelB)
	require.Equal(t, []string{"0", "1"}, pc.ClustersA)
	require.Equal(t, []string{"0", "1"}, pc.ClustersB)
	require.Len(t, pc.OrderA, 2)
	require.Len(t, pc.OrderB, 2)

	// dsB swaps the populations, so cluster 0 of A matches cluster 1 of B.
	require.Greater(t, pc.Correlation.At(0, 1), pc.Correlation.At(0, 0))
	require.Greater(t, pc.Correlation.At(1, 0), pc.Correlation.At(1, 1))

	// Only the expression is swapped; the assignments are identical.
	require.InDelta(t, 1.0, pc.NMI, 1e-12)
}

func TestComparePairCellCountMismatch(t *testing.T) {
	dsA := clusteredDataset(t, "cluster", false)
	dsB := clusteredDataset(t, "cluster", false)
	dsB.CellIDs = dsB.CellIDs[:6]

	_, err := ComparePair(dsA, dsB, "a", "b", "cluster", dsA.GeneIDs)
	require.Error(t, err)
}
