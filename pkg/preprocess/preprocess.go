// Package preprocess implements the expression preprocessing steps run
// before dimensionality reduction: total-count normalization, variable
// gene selection, and unit-variance scaling.
package preprocess

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
)

// DefaultTargetSum is the per-cell total after normalization.
const DefaultTargetSum = 1e4

// NormalizeTotal rescales every cell's counts to targetSum and applies
// log1p, storing the result as the normalized layer. The raw layer is
// left untouched. Cells with zero total counts are rejected.
func NormalizeTotal(ds *dataset.Dataset, targetSum float64) error {
	if targetSum <= 0 {
		return fmt.Errorf("target sum must be positive: %f", targetSum)
	}

	nCells, nGenes := ds.NCells(), ds.NGenes()
	norm := mat.NewDense(nCells, nGenes, nil)

	for i := 0; i < nCells; i++ {
		row := ds.Raw.RawRowView(i)
		total := floats.Sum(row)
		if total <= 0 {
			return fmt.Errorf("cell %s has no counts", ds.CellIDs[i])
		}
		scale := targetSum / total
		for j, v := range row {
			norm.Set(i, j, math.Log1p(v*scale))
		}
	}

	ds.Norm = norm
	return nil
}

// dispersionBins is the number of mean-expression bins used to normalize
// per-gene dispersions against genes of similar abundance.
const dispersionBins = 20

// SelectVariableGenes ranks genes by a variance-stabilizing criterion and
// flags the top n as the variable feature set. The ranking follows the
// classic dispersion approach: per-gene dispersion (variance over mean of
// the de-logged normalized values) is z-scored within mean-expression
// bins, so highly expressed genes do not dominate purely through scale.
// The selection is returned most informative first and also stored on the
// dataset, replacing any previous selection. Downstream scaled data and
// reductions derived from an older selection are discarded.
func SelectVariableGenes(ds *dataset.Dataset, n int) ([]string, error) {
	if ds.Norm == nil {
		return nil, fmt.Errorf("dataset is not normalized")
	}
	if n <= 0 {
		return nil, fmt.Errorf("number of variable genes must be positive: %d", n)
	}
	nGenes := ds.NGenes()
	if n > nGenes {
		return nil, fmt.Errorf("requested %d variable genes but dataset has %d", n, nGenes)
	}

	nCells := ds.NCells()
	means := make([]float64, nGenes)
	dispersions := make([]float64, nGenes)

	col := make([]float64, nCells)
	for j := 0; j < nGenes; j++ {
		for i := 0; i < nCells; i++ {
			col[i] = math.Expm1(ds.Norm.At(i, j))
		}
		mean, variance := stat.MeanVariance(col, nil)
		means[j] = mean
		if mean > 0 {
			dispersions[j] = variance / mean
		}
	}

	normDisp := normalizeDispersions(means, dispersions)

	order := make([]int, nGenes)
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		if normDisp[order[a]] != normDisp[order[b]] {
			return normDisp[order[a]] > normDisp[order[b]]
		}
		// Tie-break on raw dispersion, then on gene order, so the
		// selection is stable across runs.
		if dispersions[order[a]] != dispersions[order[b]] {
			return dispersions[order[a]] > dispersions[order[b]]
		}
		return order[a] < order[b]
	})

	selected := make([]string, n)
	for i := 0; i < n; i++ {
		selected[i] = ds.GeneIDs[order[i]]
	}

	ds.GeneStats["mean"] = means
	ds.GeneStats["dispersion"] = dispersions
	ds.GeneStats["dispersion_norm"] = normDisp
	ds.VariableGenes = append([]string(nil), selected...)
	ds.Scaled = nil

	return selected, nil
}

// normalizeDispersions z-scores dispersions within mean-expression bins.
func normalizeDispersions(means, dispersions []float64) []float64 {
	nGenes := len(means)

	// Rank genes by mean and cut into equal-occupancy bins.
	byMean := make([]int, nGenes)
	for j := range byMean {
		byMean[j] = j
	}
	sort.SliceStable(byMean, func(a, b int) bool { return means[byMean[a]] < means[byMean[b]] })

	// Keep at least two genes per bin so the within-bin deviation is
	// meaningful; singleton bins would zero out their gene's score.
	bins := dispersionBins
	if bins > nGenes/2 {
		bins = nGenes / 2
	}
	if bins < 1 {
		bins = 1
	}
	binOf := make([]int, nGenes)
	for rank, j := range byMean {
		binOf[j] = rank * bins / nGenes
	}

	// Per-bin dispersion mean and standard deviation.
	binValues := make([][]float64, bins)
	for j := 0; j < nGenes; j++ {
		b := binOf[j]
		binValues[b] = append(binValues[b], dispersions[j])
	}
	binMean := make([]float64, bins)
	binStd := make([]float64, bins)
	for b := 0; b < bins; b++ {
		if len(binValues[b]) == 0 {
			continue
		}
		m, v := stat.MeanVariance(binValues[b], nil)
		binMean[b] = m
		binStd[b] = math.Sqrt(v)
	}

	normDisp := make([]float64, nGenes)
	for j := 0; j < nGenes; j++ {
		b := binOf[j]
		if binStd[b] > 0 {
			normDisp[j] = (dispersions[j] - binMean[b]) / binStd[b]
		} else {
			// Singleton or constant bin: fall back to the centered value
			// so such genes neither win nor lose from their bin.
			normDisp[j] = dispersions[j] - binMean[b]
		}
	}
	return normDisp
}

// ScaleOptions controls Scale. The default path divides by the per-gene
// standard deviation without centering, then clips large values.
type ScaleOptions struct {
	Center   bool    // subtract the per-gene mean before scaling
	MaxValue float64 // clip scaled values at this magnitude; 0 disables
}

// DefaultScaleOptions matches the sweep's default path: no centering,
// clip at 10.
func DefaultScaleOptions() ScaleOptions {
	return ScaleOptions{Center: false, MaxValue: 10}
}

// Scale builds the scaled layer over the current variable genes: each
// gene column of the normalized layer is divided by its standard
// deviation. Constant genes are left at zero rather than dividing by a
// zero deviation.
func Scale(ds *dataset.Dataset, opts ScaleOptions) error {
	if ds.Norm == nil {
		return fmt.Errorf("dataset is not normalized")
	}
	if len(ds.VariableGenes) == 0 {
		return fmt.Errorf("no variable genes selected")
	}

	nCells := ds.NCells()
	scaled := mat.NewDense(nCells, len(ds.VariableGenes), nil)

	col := make([]float64, nCells)
	for k, gene := range ds.VariableGenes {
		j := ds.GeneIndex(gene)
		if j < 0 {
			return fmt.Errorf("variable gene not in dataset: %s", gene)
		}
		mat.Col(col, j, ds.Norm)

		mean, variance := stat.MeanVariance(col, nil)
		std := math.Sqrt(variance)

		for i := 0; i < nCells; i++ {
			v := col[i]
			if opts.Center {
				v -= mean
			}
			if std > 0 {
				v /= std
			} else {
				v = 0
			}
			if opts.MaxValue > 0 {
				if v > opts.MaxValue {
					v = opts.MaxValue
				} else if v < -opts.MaxValue {
					v = -opts.MaxValue
				}
			}
			scaled.Set(i, k, v)
		}
	}

	ds.Scaled = scaled
	return nil
}
