package pcexplore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
)

// scoredDataset fabricates a "pca" reduction with 3 components over two
// clusters of 5 cells each. Component 0 separates the clusters cleanly,
// component 1 overlaps them, component 2 is pure noise around zero.
func scoredDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	const cells = 10

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

	raw := mat.NewDense(cells, 1, nil)
	for i := 0; i < cells; i++ {
		raw.Set(i, 0, 1)
	}
	ds, err := dataset.New(cellIDs, []string{"g0"}, raw)
	require.NoError(t, err)
	require.NoError(t, ds.SetObs("cluster", labels))

	scores := mat.NewDense(cells, 3, nil)
	for i := 0; i < cells; i++ {
		jitter := 0.1 * float64(i%5)
		if i < cells/2 {
			scores.Set(i, 0, -10+jitter)
		} else {
			scores.Set(i, 0, 10+jitter)
		}
		scores.Set(i, 1, jitter)
		scores.Set(i, 2, 0.01*float64(i%3)-0.01)
	}
	require.NoError(t, ds.SetReduction("pca", scores))
	return ds
}

func TestLongForm(t *testing.T) {
	ds := scoredDataset(t)

	records, err := LongForm(ds, "cluster", 2)
	require.NoError(t, err)
	require.Len(t, records, 20, "one record per cell per component")

	for _, rec := range records {
		require.Contains(t, ds.CellIDs, rec.CellID)
		require.Contains(t, []string{"0", "1"}, rec.Cluster)
		require.GreaterOrEqual(t, rec.Component, 0)
		require.Less(t, rec.Component, 2)
	}

	// The first record block is component 0 in cell order.
	require.Equal(t, "cell0", records[0].CellID)
	require.Equal(t, 0, records[0].Component)
	require.Equal(t, ds.Reductions["pca"].At(0, 0), records[0].Score)
}

func TestLongFormCapsComponents(t *testing.T) {
	ds := scoredDataset(t)

	records, err := LongForm(ds, "cluster", 50)
	require.NoError(t, err)
	require.Len(t, records, 30)

	_, err = LongForm(ds, "missing", 2)
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	ds := scoredDataset(t)

	stats, err := Summarize(ds, "cluster", 3)
	require.NoError(t, err)
	require.Len(t, stats, 6, "one entry per component per cluster")

	// Sorted by descending separation, with the separating component on
	// top and its cluster medians on either side of zero.
	for i := 1; i < len(stats); i++ {
		require.GreaterOrEqual(t, stats[i-1].Separation, stats[i].Separation)
	}
	require.Equal(t, 0, stats[0].Component)
	require.Equal(t, 0, stats[1].Component)
	require.Greater(t, stats[0].Separation, stats[2].Separation)

	for _, s := range stats {
		require.GreaterOrEqual(t, s.IQR, 0.0)
		if s.Component == 0 {
			if s.Cluster == "0" {
				require.Less(t, s.Median, 0.0)
			} else {
				require.Greater(t, s.Median, 0.0)
			}
		}
	}
}

func TestSummarizeSingleCluster(t *testing.T) {
	ds := scoredDataset(t)
	flat := make([]string, ds.NCells())
	for i := range flat {
		flat[i] = "only"
	}
	require.NoError(t, ds.SetObs("flat", flat))

	// With no "rest" to compare against there is nothing to report.
	stats, err := Summarize(ds, "flat", 3)
	require.NoError(t, err)
	require.Empty(t, stats)
}

func TestQuantile(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	require.Equal(t, 2.5, median(values))
	require.Equal(t, 1.0, quantile(values, 0))
	require.Equal(t, 4.0, quantile(values, 1))
	require.InDelta(t, 1.75, quantile(values, 0.25), 1e-12)
	require.Equal(t, 7.0, median([]float64{7}))
}

func TestMedianAbsDeviation(t *testing.T) {
	// median = 3, |deviations| = {2, 1, 0, 1, 2}, MAD = 1.
	require.Equal(t, 1.0, medianAbsDeviation([]float64{1, 2, 3, 4, 5}))
	require.Equal(t, 0.0, medianAbsDeviation([]float64{4, 4, 4}))
}
