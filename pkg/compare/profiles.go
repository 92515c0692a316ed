// Package compare quantifies how similar the cluster structures of two
// analysis runs are: Spearman correlation between per-cluster mean
// expression profiles over a shared gene set, plus normalized mutual
// information between the raw assignments.
package compare

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
)

// MeanExpressionByCluster computes the average normalized expression per
// cluster over the given gene set. Returns the sorted cluster levels and
// a clusters x genes profile matrix in that order.
func MeanExpressionByCluster(ds *dataset.Dataset, obsCol string, genes []string) ([]string, *mat.Dense, error) {
	if ds.Norm == nil {
		return nil, nil, fmt.Errorf("dataset is not normalized")
	}
	if len(genes) == 0 {
		return nil, nil, fmt.Errorf("gene set is empty")
	}

	labels, err := ds.ObsColumn(obsCol)
	if err != nil {
		return nil, nil, err
	}
	levels, err := ds.ObsLevels(obsCol)
	if err != nil {
		return nil, nil, err
	}

	geneIdx := make([]int, len(genes))
	for i, g := range genes {
		j := ds.GeneIndex(g)
		if j < 0 {
			return nil, nil, fmt.Errorf("reference gene not in dataset: %s", g)
		}
		geneIdx[i] = j
	}

	levelOf := make(map[string]int, len(levels))
	for i, l := range levels {
		levelOf[l] = i
	}

	profiles := mat.NewDense(len(levels), len(genes), nil)
	counts := make([]float64, len(levels))

	for cell, label := range labels {
		c := levelOf[label]
		counts[c]++
		row := ds.Norm.RawRowView(cell)
		for i, j := range geneIdx {
			profiles.Set(c, i, profiles.At(c, i)+row[j])
		}
	}
	for c := range levels {
		if counts[c] == 0 {
			continue
		}
		for i := range genes {
			profiles.Set(c, i, profiles.At(c, i)/counts[c])
		}
	}

	return levels, profiles, nil
}
