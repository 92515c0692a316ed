package viz

import (
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/gilchrisn/scrna-analysis-service/pkg/pcexplore"
)

// ComponentBoxPlots renders one box-plot panel per principal component,
// with one box per cluster, arranged in a grid. This is the visual aid
// for deciding which components track a particular cluster.
func ComponentBoxPlots(records []pcexplore.Record, cols int, path string) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to render")
	}
	if cols <= 0 {
		cols = 3
	}

	// Regroup long-form records by component, then cluster.
	components := make([]int, 0)
	byComponent := make(map[int]map[string]plotter.Values)
	for _, rec := range records {
		clusters, ok := byComponent[rec.Component]
		if !ok {
			clusters = make(map[string]plotter.Values)
			byComponent[rec.Component] = clusters
			components = append(components, rec.Component)
		}
		clusters[rec.Cluster] = append(clusters[rec.Cluster], rec.Score)
	}
	sort.Ints(components)

	rows := (len(components) + cols - 1) / cols
	plots := make([][]*plot.Plot, rows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, cols)
	}

	for idx, comp := range components {
		p, err := componentBoxPlot(comp, byComponent[comp])
		if err != nil {
			return fmt.Errorf("component %d: %w", comp+1, err)
		}
		plots[idx/cols][idx%cols] = p
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

func componentBoxPlot(component int, byCluster map[string]plotter.Values) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("PC%d", component+1)
	p.Y.Label.Text = "score"

	clusters := make([]string, 0, len(byCluster))
	for cluster := range byCluster {
		clusters = append(clusters, cluster)
	}
	sortLevels(clusters)

	for i, cluster := range clusters {
		box, err := plotter.NewBoxPlot(vg.Points(16), float64(i), byCluster[cluster])
		if err != nil {
			return nil, err
		}
		p.Add(box)
	}
	p.NominalX(clusters...)

	return p, nil
}

// sortLevels sorts cluster labels numerically when they all parse as
// integers, lexically otherwise.
func sortLevels(levels []string) {
	numeric := true
	for _, l := range levels {
		if _, err := strconv.Atoi(l); err != nil {
			numeric = false
			break
		}
	}
	if numeric {
		sort.Slice(levels, func(a, b int) bool {
			ia, _ := strconv.Atoi(levels[a])
			ib, _ := strconv.Atoi(levels[b])
			return ia < ib
		})
		return
	}
	sort.Strings(levels)
}
