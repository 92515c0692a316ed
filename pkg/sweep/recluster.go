package sweep

import (
	"context"
	"fmt"

	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
	"github.com/gilchrisn/scrna-analysis-service/pkg/louvain"
	"github.com/gilchrisn/scrna-analysis-service/pkg/reduction"
)

// Reduction and obs-column names produced by Recluster.
const (
	FilteredPCAKey   = "pca_filtered"
	FilteredEmbedKey = "mds_filtered"
)

// Recluster reruns embedding and clustering after dropping an explicit,
// hand-selected list of principal components. The exclusion list comes
// from visual inspection of per-component distributions, not from an
// automated rule. The original cluster labels and reductions are kept so
// old and new structure can be rendered side by side; only new obs and
// reduction entries are added.
func Recluster(ctx context.Context, ds *dataset.Dataset, exclude []int, newObsCol string, cfg *Config) (*louvain.Result, error) {
	if len(exclude) == 0 {
		return nil, fmt.Errorf("no components to exclude")
	}

	logger := cfg.CreateLogger()
	nCells := ds.NCells()

	if err := reduction.ExcludeComponents(ds, reduction.PCAKey, FilteredPCAKey, exclude); err != nil {
		return nil, fmt.Errorf("component exclusion: %w", err)
	}
	if err := reduction.Embed2D(ds, FilteredPCAKey, FilteredEmbedKey, cfg.EmbedDims()); err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}

	res, err := Cluster(ctx, ds, FilteredPCAKey, newObsCol, cfg)
	if err != nil {
		return nil, err
	}

	if ds.NCells() != nCells {
		return nil, fmt.Errorf("cell count changed during re-clustering: %d -> %d", nCells, ds.NCells())
	}

	logger.Info().
		Ints("excluded_components", exclude).
		Int("clusters", res.NumCommunities).
		Float64("modularity", res.Modularity).
		Msg("Re-clustering with components excluded completed")

	return res, nil
}
