package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/scrna-analysis-service/internal/printer"
	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
	"github.com/gilchrisn/scrna-analysis-service/pkg/reduction"
	"github.com/gilchrisn/scrna-analysis-service/pkg/sweep"
	"github.com/gilchrisn/scrna-analysis-service/pkg/viz"
)

var (
	reclusterInput      string
	reclusterExclude    []int
	reclusterClusterCol string
	reclusterNewCol     string
	reclusterSaveTo     string
)

var reclusterCmd = &cobra.Command{
	Use:   "recluster",
	Short: "Re-embed and re-cluster with hand-picked principal components excluded",
	Long: `recluster drops an explicit list of principal components (zero-based
indices, chosen after inspecting pcexplore output), recomputes the
embedding and the neighbor-graph clustering over the remaining
components, and renders the original cluster labels on both the original
and the revised embedding for visual comparison.`,
	RunE: runRecluster,
}

func init() {
	reclusterCmd.Flags().StringVar(&reclusterInput, "input", "", "dataset snapshot with a PCA reduction and cluster labels (required)")
	reclusterCmd.Flags().IntSliceVar(&reclusterExclude, "exclude", nil, "zero-based component indices to drop (required)")
	reclusterCmd.Flags().StringVar(&reclusterClusterCol, "cluster-col", "cluster", "obs column holding the original cluster labels")
	reclusterCmd.Flags().StringVar(&reclusterNewCol, "new-col", "cluster_filtered", "obs column for the new cluster labels")
	reclusterCmd.Flags().StringVar(&reclusterSaveTo, "save-to", "", "optional path to save the updated snapshot")
	reclusterCmd.MarkFlagRequired("input")
	reclusterCmd.MarkFlagRequired("exclude")
	rootCmd.AddCommand(reclusterCmd)
}

func runRecluster(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return printer.Fail("failed to load configuration: %v", err)
	}

	ds, err := dataset.Load(reclusterInput)
	if err != nil {
		return printer.Fail("failed to load snapshot: %v", err)
	}

	// The before/after comparison renders the ORIGINAL labels on both
	// embeddings, so the original embedding must exist up front.
	if _, err := ds.Reduction(reduction.EmbedKey); err != nil {
		if err := reduction.Embed2D(ds, reduction.PCAKey, reduction.EmbedKey, cfg.EmbedDims()); err != nil {
			return printer.Fail("failed to compute the original embedding: %v", err)
		}
	}

	res, err := sweep.Recluster(cmd.Context(), ds, reclusterExclude, reclusterNewCol, cfg)
	if err != nil {
		return printer.Fail("re-clustering failed: %v", err)
	}
	printer.Success("Re-clustering found %d clusters (modularity %.4f)", res.NumCommunities, res.Modularity)

	before, err := viz.PanelFromDataset(ds, "original embedding", reduction.EmbedKey, reclusterClusterCol)
	if err != nil {
		return printer.Fail("failed to build original panel: %v", err)
	}
	after, err := viz.PanelFromDataset(ds, "components excluded", sweep.FilteredEmbedKey, reclusterClusterCol)
	if err != nil {
		return printer.Fail("failed to build filtered panel: %v", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return printer.Fail("failed to create output directory: %v", err)
	}
	path := filepath.Join(outputDir, "recluster_comparison.png")
	if err := viz.EmbeddingPair(before, after, path); err != nil {
		return printer.Fail("failed to render comparison: %v", err)
	}
	printer.Success("Before/after comparison written to %s", path)

	if reclusterSaveTo != "" {
		if err := dataset.Save(ds, reclusterSaveTo); err != nil {
			return printer.Fail("failed to save snapshot: %v", err)
		}
		printer.Success("Updated snapshot saved to %s", reclusterSaveTo)
	}

	return nil
}
