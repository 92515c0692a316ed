package viz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/scrna-analysis-service/pkg/compare"
	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
	"github.com/gilchrisn/scrna-analysis-service/pkg/pcexplore"
)

func testPanel(t *testing.T, title string) Panel {
	t.Helper()
	coords := mat.NewDense(6, 2, []float64{
		0, 0,
		1, 0.5,
		0.5, 1,
		10, 10,
		11, 10.5,
		10.5, 11,
	})
	return Panel{
		Title:  title,
		Coords: coords,
		Labels: []string{"0", "0", "0", "1", "1", "1"},
	}
}

// requirePNG checks that a non-trivial PNG landed at path.
func requirePNG(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(100))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	header := make([]byte, 8)
	_, err = f.Read(header)
	require.NoError(t, err)
	require.Equal(t, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, header)
}

func TestEmbeddingGrid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.png")

	panels := []Panel{
		testPanel(t, "hvg_500"),
		testPanel(t, "hvg_1000"),
		testPanel(t, "hvg_2000"),
	}
	require.NoError(t, EmbeddingGrid(panels, 2, path))
	requirePNG(t, path)
}

func TestEmbeddingGridValidation(t *testing.T) {
	dir := t.TempDir()

	require.Error(t, EmbeddingGrid(nil, 2, filepath.Join(dir, "x.png")))

	bad := testPanel(t, "bad")
	bad.Labels = bad.Labels[:2]
	require.Error(t, EmbeddingGrid([]Panel{bad}, 2, filepath.Join(dir, "y.png")))
}

func TestEmbeddingPair(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pair.png")

	require.NoError(t, EmbeddingPair(testPanel(t, "original"), testPanel(t, "filtered"), path))
	requirePNG(t, path)
}

func TestPanelFromDataset(t *testing.T) {
	raw := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	ds, err := dataset.New([]string{"a", "b", "c"}, []string{"g1", "g2"}, raw)
	require.NoError(t, err)
	require.NoError(t, ds.SetObs("cluster", []string{"0", "1", "0"}))
	require.NoError(t, ds.SetReduction("mds", mat.NewDense(3, 2, []float64{0, 0, 1, 1, 2, 2})))

	panel, err := PanelFromDataset(ds, "run", "mds", "cluster")
	require.NoError(t, err)
	require.Equal(t, "run", panel.Title)
	require.Len(t, panel.Labels, 3)

	_, err = PanelFromDataset(ds, "run", "missing", "cluster")
	require.Error(t, err)
	_, err = PanelFromDataset(ds, "run", "mds", "missing")
	require.Error(t, err)
}

func TestCorrelationHeatmap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corr.png")

	pc := &compare.PairComparison{
		LabelA:    "hvg_500",
		LabelB:    "hvg_1000",
		ClustersA: []string{"0", "1"},
		ClustersB: []string{"0", "1", "2"},
		Correlation: mat.NewDense(2, 3, []float64{
			0.9, -0.2, 0.1,
			-0.3, 0.8, 0.4,
		}),
		OrderA: []int{1, 0},
		OrderB: []int{2, 0, 1},
		NMI:    0.75,
	}
	require.NoError(t, CorrelationHeatmap(pc, path))
	requirePNG(t, path)
}

func TestComponentBoxPlots(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pcs.png")

	var records []pcexplore.Record
	for comp := 0; comp < 3; comp++ {
		for i := 0; i < 10; i++ {
			cluster := "0"
			if i >= 5 {
				cluster = "1"
			}
			records = append(records, pcexplore.Record{
				CellID:    "cell",
				Component: comp,
				Score:     float64(i) + float64(comp)*10,
				Cluster:   cluster,
			})
		}
	}
	require.NoError(t, ComponentBoxPlots(records, 2, path))
	requirePNG(t, path)

	require.Error(t, ComponentBoxPlots(nil, 2, filepath.Join(dir, "empty.png")))
}

func TestSortLevels(t *testing.T) {
	levels := []string{"10", "2", "1", "0"}
	sortLevels(levels)
	require.Equal(t, []string{"0", "1", "2", "10"}, levels)

	mixed := []string{"b", "a", "10", "2"}
	sortLevels(mixed)
	require.Equal(t, []string{"10", "2", "a", "b"}, mixed)
}
