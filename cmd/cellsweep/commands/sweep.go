package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/scrna-analysis-service/internal/printer"
	"github.com/gilchrisn/scrna-analysis-service/pkg/compare"
	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
	"github.com/gilchrisn/scrna-analysis-service/pkg/preprocess"
	"github.com/gilchrisn/scrna-analysis-service/pkg/reduction"
	"github.com/gilchrisn/scrna-analysis-service/pkg/sweep"
	"github.com/gilchrisn/scrna-analysis-service/pkg/viz"
)

var (
	sweepInput    string
	sweepCounts   []int
	sweepRefLabel string
	sweepSaveAll  bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the variable-gene-count parameter sweep and compare cluster structures",
	RunE:  runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepInput, "input", "", "dataset snapshot to analyze (required)")
	sweepCmd.Flags().IntSliceVar(&sweepCounts, "gene-counts", nil, "candidate variable gene counts (default 500,1000,2000,5000)")
	sweepCmd.Flags().StringVar(&sweepRefLabel, "ref-genes-from", "", "sweep label whose variable genes form the comparison gene set (default: first candidate)")
	sweepCmd.Flags().BoolVar(&sweepSaveAll, "save", false, "save each processed dataset as a snapshot in the output directory")
	sweepCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return printer.Fail("failed to load configuration: %v", err)
	}
	if len(sweepCounts) > 0 {
		cfg.Set("sweep.gene_counts", sweepCounts)
	}

	ds, err := dataset.Load(sweepInput)
	if err != nil {
		return printer.Fail("failed to load snapshot: %v", err)
	}
	printer.Info("Loaded %d cells x %d genes from %s", ds.NCells(), ds.NGenes(), sweepInput)

	if ds.Norm == nil {
		if err := preprocess.NormalizeTotal(ds, cfg.TargetSum()); err != nil {
			return printer.Fail("normalization failed: %v", err)
		}
	}

	result, err := sweep.Run(cmd.Context(), ds, cfg)
	if err != nil {
		return printer.Fail("sweep failed: %v", err)
	}

	runDir := filepath.Join(outputDir, result.RunID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return printer.Fail("failed to create output directory: %v", err)
	}

	printSweepSummary(result)

	// Grid of one embedding panel per sweep setting.
	panels := make([]viz.Panel, 0, len(result.Entries))
	for _, entry := range result.Entries {
		panel, err := viz.PanelFromDataset(entry.Dataset, entry.Label, reduction.EmbedKey, cfg.ClusterColumn())
		if err != nil {
			return printer.Fail("failed to build panel for %s: %v", entry.Label, err)
		}
		panels = append(panels, panel)
	}
	gridPath := filepath.Join(runDir, "embeddings.png")
	if err := viz.EmbeddingGrid(panels, 2, gridPath); err != nil {
		return printer.Fail("failed to render embedding grid: %v", err)
	}
	printer.Success("Embedding grid written to %s", gridPath)

	if err := renderComparisons(result, cfg.ClusterColumn(), runDir); err != nil {
		return err
	}

	if sweepSaveAll {
		for _, entry := range result.Entries {
			path := filepath.Join(runDir, entry.Label+".snapshot")
			if err := dataset.Save(entry.Dataset, path); err != nil {
				return printer.Fail("failed to save %s: %v", entry.Label, err)
			}
		}
		printer.Success("Saved %d processed snapshots to %s", len(result.Entries), runDir)
	}

	return nil
}

// renderComparisons computes and renders the correlation heatmap for
// every unordered pair of sweep entries.
func renderComparisons(result *sweep.Result, obsCol, runDir string) error {
	refGenes, refLabel, err := referenceGenes(result)
	if err != nil {
		return printer.Fail("%v", err)
	}
	printer.Info("Comparing cluster profiles over %d genes from %s", len(refGenes), refLabel)

	rows := make([][]string, 0)
	for i := 0; i < len(result.Entries); i++ {
		for j := i + 1; j < len(result.Entries); j++ {
			a, b := result.Entries[i], result.Entries[j]
			pc, err := compare.ComparePair(a.Dataset, b.Dataset, a.Label, b.Label, obsCol, refGenes)
			if err != nil {
				return printer.Fail("comparison %s vs %s failed: %v", a.Label, b.Label, err)
			}

			path := filepath.Join(runDir, fmt.Sprintf("corr_%s_vs_%s.png", a.Label, b.Label))
			if err := viz.CorrelationHeatmap(pc, path); err != nil {
				return printer.Fail("failed to render heatmap %s vs %s: %v", a.Label, b.Label, err)
			}
			rows = append(rows, []string{
				a.Label, b.Label,
				strconv.Itoa(len(pc.ClustersA)), strconv.Itoa(len(pc.ClustersB)),
				fmt.Sprintf("%.3f", pc.NMI),
			})
		}
	}

	printer.Header("Pairwise cluster comparisons")
	printer.Table([]string{"A", "B", "clusters A", "clusters B", "NMI"}, rows)
	return nil
}

// referenceGenes picks the shared gene set for profile comparisons: the
// variable genes of the designated candidate, or of the first entry when
// none was designated.
func referenceGenes(result *sweep.Result) ([]string, string, error) {
	if len(result.Entries) == 0 {
		return nil, "", fmt.Errorf("sweep produced no entries")
	}
	label := sweepRefLabel
	if label == "" {
		label = result.Entries[0].Label
	}
	entry, ok := result.Get(label)
	if !ok {
		return nil, "", fmt.Errorf("reference label not in sweep: %s (have %v)", label, result.Labels())
	}
	return entry.Dataset.VariableGenes, label, nil
}

func printSweepSummary(result *sweep.Result) {
	printer.Header("Sweep %s", result.RunID)
	rows := make([][]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		rows = append(rows, []string{
			entry.Label,
			strconv.Itoa(entry.GeneCount),
			strconv.Itoa(entry.NumClusters),
			fmt.Sprintf("%.4f", entry.Modularity),
			entry.Elapsed.Round(time.Millisecond).String(),
		})
	}
	printer.Table([]string{"label", "genes", "clusters", "modularity", "elapsed"}, rows)
}
