package viz

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/gilchrisn/scrna-analysis-service/pkg/compare"
)

// CorrelationHeatmap renders a pair comparison as an annotated heatmap.
// Rows and columns follow the Ward-linkage orders computed by the
// comparator, and cells are annotated with the correlation value.
func CorrelationHeatmap(pc *compare.PairComparison, path string) error {
	reordered, rowNames, colNames := reorderMatrix(pc)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs %s (NMI %.3f)", pc.LabelA, pc.LabelB, pc.NMI)
	p.X.Label.Text = pc.LabelB
	p.Y.Label.Text = pc.LabelA

	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)

	grid := matrixGrid{m: reordered}
	hm := plotter.NewHeatMap(grid, cm.Palette(255))
	hm.Min = -1
	hm.Max = 1
	p.Add(hm)

	p.X.Tick.Marker = labelTicks(colNames)
	p.Y.Tick.Marker = labelTicks(rowNames)

	// Annotate each cell with its correlation value.
	rows, cols := reordered.Dims()
	labels := plotter.XYLabels{}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(j), Y: float64(i)})
			labels.Labels = append(labels.Labels, fmt.Sprintf("%.2f", reordered.At(i, j)))
		}
	}
	annotations, err := plotter.NewLabels(labels)
	if err != nil {
		return fmt.Errorf("heatmap annotations: %w", err)
	}
	p.Add(annotations)

	side := vg.Length(cols+2) * vg.Inch / 2
	height := vg.Length(rows+2) * vg.Inch / 2
	img := vgimg.New(side, height)
	dc := draw.New(img)
	p.Draw(dc)

	return writePNG(img, path)
}

// reorderMatrix applies the comparator's Ward orders to the correlation
// matrix and cluster names.
func reorderMatrix(pc *compare.PairComparison) (*mat.Dense, []string, []string) {
	rows, cols := pc.Correlation.Dims()
	out := mat.NewDense(rows, cols, nil)
	rowNames := make([]string, rows)
	colNames := make([]string, cols)

	for i, oi := range pc.OrderA {
		rowNames[i] = pc.ClustersA[oi]
		for j, oj := range pc.OrderB {
			out.Set(i, j, pc.Correlation.At(oi, oj))
		}
	}
	for j, oj := range pc.OrderB {
		colNames[j] = pc.ClustersB[oj]
	}
	return out, rowNames, colNames
}

// matrixGrid adapts a mat.Dense to the heatmap grid interface. Row i of
// the matrix is drawn at y=i, column j at x=j.
type matrixGrid struct {
	m *mat.Dense
}

func (g matrixGrid) Dims() (c, r int) {
	rows, cols := g.m.Dims()
	return cols, rows
}

func (g matrixGrid) Z(c, r int) float64 { return g.m.At(r, c) }
func (g matrixGrid) X(c int) float64    { return float64(c) }
func (g matrixGrid) Y(r int) float64    { return float64(r) }

// labelTicks places one named tick per index.
func labelTicks(names []string) plot.ConstantTicks {
	ticks := make([]plot.Tick, len(names))
	for i, name := range names {
		ticks[i] = plot.Tick{Value: float64(i), Label: name}
	}
	return plot.ConstantTicks(ticks)
}
