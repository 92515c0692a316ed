// Package pcexplore reshapes leading principal-component scores into
// long form and summarizes their per-cluster distributions, so an
// analyst can spot components that track a single cluster. Which
// components to exclude downstream stays a human judgment call; this
// package only surfaces the evidence.
package pcexplore

import (
	"fmt"
	"math"
	"sort"

	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
)

// Record is one cell x component observation in long form.
type Record struct {
	CellID    string
	Component int // zero-based PC index
	Score     float64
	Cluster   string
}

// LongForm extracts the first m components of the "pca" reduction, one
// record per cell per component, annotated with the cell's cluster label.
func LongForm(ds *dataset.Dataset, obsCol string, m int) ([]Record, error) {
	scores, err := ds.Reduction("pca")
	if err != nil {
		return nil, err
	}
	labels, err := ds.ObsColumn(obsCol)
	if err != nil {
		return nil, err
	}

	nCells, nComp := scores.Dims()
	if m <= 0 || m > nComp {
		m = nComp
	}

	records := make([]Record, 0, nCells*m)
	for comp := 0; comp < m; comp++ {
		for cell := 0; cell < nCells; cell++ {
			records = append(records, Record{
				CellID:    ds.CellIDs[cell],
				Component: comp,
				Score:     scores.At(cell, comp),
				Cluster:   labels[cell],
			})
		}
	}
	return records, nil
}

// ClusterStats summarizes one component's score distribution within one
// cluster, against the rest of the cells.
type ClusterStats struct {
	Component  int
	Cluster    string
	Median     float64
	IQR        float64
	Separation float64 // |median(cluster) - median(rest)| / MAD(all)
}

// Summarize computes per-component per-cluster distribution summaries
// over the first m components. Results are sorted by descending
// separation, so components tracking a particular cluster surface first.
func Summarize(ds *dataset.Dataset, obsCol string, m int) ([]ClusterStats, error) {
	scores, err := ds.Reduction("pca")
	if err != nil {
		return nil, err
	}
	labels, err := ds.ObsColumn(obsCol)
	if err != nil {
		return nil, err
	}
	levels, err := ds.ObsLevels(obsCol)
	if err != nil {
		return nil, err
	}

	nCells, nComp := scores.Dims()
	if m <= 0 || m > nComp {
		m = nComp
	}
	if nCells < 2 {
		return nil, fmt.Errorf("too few cells to summarize: %d", nCells)
	}

	var stats []ClusterStats
	all := make([]float64, nCells)

	for comp := 0; comp < m; comp++ {
		for i := 0; i < nCells; i++ {
			all[i] = scores.At(i, comp)
		}
		mad := medianAbsDeviation(all)

		for _, level := range levels {
			var in, out []float64
			for i := 0; i < nCells; i++ {
				if labels[i] == level {
					in = append(in, scores.At(i, comp))
				} else {
					out = append(out, scores.At(i, comp))
				}
			}
			if len(in) == 0 || len(out) == 0 {
				continue
			}

			med := median(in)
			sep := 0.0
			if mad > 0 {
				sep = math.Abs(med-median(out)) / mad
			}
			stats = append(stats, ClusterStats{
				Component:  comp,
				Cluster:    level,
				Median:     med,
				IQR:        quantile(in, 0.75) - quantile(in, 0.25),
				Separation: sep,
			})
		}
	}

	sort.SliceStable(stats, func(a, b int) bool { return stats[a].Separation > stats[b].Separation })
	return stats, nil
}

func median(values []float64) float64 {
	return quantile(values, 0.5)
}

func quantile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func medianAbsDeviation(values []float64) float64 {
	med := median(values)
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - med)
	}
	return median(deviations)
}
