package compare

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
)

// PairComparison holds everything computed for one unordered pair of
// analysis runs: the per-cluster correlation matrix, Ward-ordered axis
// layouts for rendering, and the NMI of the assignments.
type PairComparison struct {
	LabelA, LabelB     string
	ClustersA          []string
	ClustersB          []string
	Correlation        *mat.Dense // len(ClustersA) x len(ClustersB), in [-1,1]
	OrderA, OrderB     []int      // heatmap axis orders (Ward linkage)
	NMI                float64
}

// ComparePair compares the cluster structures of two processed datasets.
// Mean expression profiles are computed per cluster over the shared
// reference gene set and correlated with Spearman rank correlation.
func ComparePair(dsA, dsB *dataset.Dataset, labelA, labelB, obsCol string, refGenes []string) (*PairComparison, error) {
	if dsA.NCells() != dsB.NCells() {
		return nil, fmt.Errorf("datasets have different cell counts: %d vs %d", dsA.NCells(), dsB.NCells())
	}

	clustersA, profilesA, err := MeanExpressionByCluster(dsA, obsCol, refGenes)
	if err != nil {
		return nil, fmt.Errorf("profiles for %s: %w", labelA, err)
	}
	clustersB, profilesB, err := MeanExpressionByCluster(dsB, obsCol, refGenes)
	if err != nil {
		return nil, fmt.Errorf("profiles for %s: %w", labelB, err)
	}

	corr, err := SpearmanMatrix(profilesA, profilesB)
	if err != nil {
		return nil, fmt.Errorf("correlating %s vs %s: %w", labelA, labelB, err)
	}

	assignA, err := dsA.ObsColumn(obsCol)
	if err != nil {
		return nil, err
	}
	assignB, err := dsB.ObsColumn(obsCol)
	if err != nil {
		return nil, err
	}
	nmi, err := NormalizedMutualInfo(assignA, assignB)
	if err != nil {
		return nil, err
	}

	return &PairComparison{
		LabelA:      labelA,
		LabelB:      labelB,
		ClustersA:   clustersA,
		ClustersB:   clustersB,
		Correlation: corr,
		OrderA:      WardOrder(profilesA),
		OrderB:      WardOrder(profilesB),
		NMI:         nmi,
	}, nil
}
