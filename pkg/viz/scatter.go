// Package viz renders the analysis figures: embedding scatter grids,
// cluster-correlation heatmaps, and per-component distribution panels.
// Everything is written to PNG files under the run output directory.
package viz

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
)

// panelSize is the rendered size of one grid panel.
const panelSize = 4 * vg.Inch

// Panel is one embedding scatter panel: 2D coordinates colored by a
// categorical label.
type Panel struct {
	Title  string
	Coords *mat.Dense // cells x 2
	Labels []string   // one per cell
}

// PanelFromDataset builds a panel from a dataset's stored reduction and
// obs column.
func PanelFromDataset(ds *dataset.Dataset, title, reductionName, obsCol string) (Panel, error) {
	coords, err := ds.Reduction(reductionName)
	if err != nil {
		return Panel{}, err
	}
	labels, err := ds.ObsColumn(obsCol)
	if err != nil {
		return Panel{}, err
	}
	return Panel{Title: title, Coords: coords, Labels: labels}, nil
}

// EmbeddingGrid renders one scatter plot per panel, arranged in a grid
// with cols columns, and writes the figure to path.
func EmbeddingGrid(panels []Panel, cols int, path string) error {
	if len(panels) == 0 {
		return fmt.Errorf("no panels to render")
	}
	if cols <= 0 {
		cols = 2
	}
	rows := (len(panels) + cols - 1) / cols

	plots := make([][]*plot.Plot, rows)
	for r := 0; r < rows; r++ {
		plots[r] = make([]*plot.Plot, cols)
		for c := 0; c < cols; c++ {
			idx := r*cols + c
			if idx >= len(panels) {
				break
			}
			p, err := scatterPlot(panels[idx])
			if err != nil {
				return fmt.Errorf("panel %q: %w", panels[idx].Title, err)
			}
			plots[r][c] = p
		}
	}

	img := vgimg.New(vg.Length(cols)*panelSize, vg.Length(rows)*panelSize)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows,
		Cols: cols,
		PadX: vg.Millimeter * 2,
		PadY: vg.Millimeter * 2,
	}

	canvases := plot.Align(plots, tiles, dc)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if plots[r][c] != nil {
				plots[r][c].Draw(canvases[r][c])
			}
		}
	}

	return writePNG(img, path)
}

// EmbeddingPair renders two panels side by side (the before/after
// comparison of re-clustering with components excluded).
func EmbeddingPair(left, right Panel, path string) error {
	return EmbeddingGrid([]Panel{left, right}, 2, path)
}

// scatterPlot draws one embedding colored by cluster, with a legend
// entry per cluster level.
func scatterPlot(panel Panel) (*plot.Plot, error) {
	r, c := panel.Coords.Dims()
	if c < 2 {
		return nil, fmt.Errorf("coordinates must have 2 columns, got %d", c)
	}
	if len(panel.Labels) != r {
		return nil, fmt.Errorf("%d labels for %d points", len(panel.Labels), r)
	}

	p := plot.New()
	p.Title.Text = panel.Title
	p.X.Label.Text = "dim 1"
	p.Y.Label.Text = "dim 2"

	// Group points by label so each cluster gets one glyph style.
	levels := make([]string, 0)
	byLevel := make(map[string]plotter.XYs)
	for i := 0; i < r; i++ {
		label := panel.Labels[i]
		if _, ok := byLevel[label]; !ok {
			levels = append(levels, label)
		}
		byLevel[label] = append(byLevel[label], plotter.XY{
			X: panel.Coords.At(i, 0),
			Y: panel.Coords.At(i, 1),
		})
	}
	sortLevels(levels)

	for i, level := range levels {
		scatter, err := plotter.NewScatter(byLevel[level])
		if err != nil {
			return nil, err
		}
		scatter.GlyphStyle.Color = plotutil.Color(i)
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add(level, scatter)
	}
	p.Legend.Top = true
	p.Legend.Left = false

	return p, nil
}

func writePNG(img *vgimg.Canvas, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create figure file: %w", err)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write figure: %w", err)
	}
	return nil
}
