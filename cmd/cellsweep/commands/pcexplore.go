package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/scrna-analysis-service/internal/printer"
	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
	"github.com/gilchrisn/scrna-analysis-service/pkg/pcexplore"
	"github.com/gilchrisn/scrna-analysis-service/pkg/viz"
)

var (
	exploreInput      string
	exploreComponents int
	exploreClusterCol string
	exploreTopN       int
)

var pcexploreCmd = &cobra.Command{
	Use:   "pcexplore",
	Short: "Inspect per-component score distributions split by cluster",
	Long: `pcexplore renders the distribution of each leading principal component
split by cluster assignment, to help identify components that track a
single cluster. Deciding which components to exclude stays with the
analyst; feed the chosen indices to the recluster command.`,
	RunE: runPCExplore,
}

func init() {
	pcexploreCmd.Flags().StringVar(&exploreInput, "input", "", "dataset snapshot with a PCA reduction and cluster labels (required)")
	pcexploreCmd.Flags().IntVar(&exploreComponents, "components", 10, "number of leading components to inspect")
	pcexploreCmd.Flags().StringVar(&exploreClusterCol, "cluster-col", "cluster", "obs column holding the cluster labels")
	pcexploreCmd.Flags().IntVar(&exploreTopN, "top", 15, "number of top separation scores to print")
	pcexploreCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(pcexploreCmd)
}

func runPCExplore(cmd *cobra.Command, args []string) error {
	ds, err := dataset.Load(exploreInput)
	if err != nil {
		return printer.Fail("failed to load snapshot: %v", err)
	}

	records, err := pcexplore.LongForm(ds, exploreClusterCol, exploreComponents)
	if err != nil {
		return printer.Fail("failed to reshape component scores: %v", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return printer.Fail("failed to create output directory: %v", err)
	}
	path := filepath.Join(outputDir, "pc_distributions.png")
	if err := viz.ComponentBoxPlots(records, 3, path); err != nil {
		return printer.Fail("failed to render distribution panels: %v", err)
	}
	printer.Success("Component distribution panels written to %s", path)

	stats, err := pcexplore.Summarize(ds, exploreClusterCol, exploreComponents)
	if err != nil {
		return printer.Fail("failed to summarize components: %v", err)
	}

	top := exploreTopN
	if top > len(stats) {
		top = len(stats)
	}
	rows := make([][]string, 0, top)
	for _, s := range stats[:top] {
		rows = append(rows, []string{
			fmt.Sprintf("PC%d", s.Component+1),
			s.Cluster,
			fmt.Sprintf("%.3f", s.Median),
			fmt.Sprintf("%.3f", s.IQR),
			fmt.Sprintf("%.2f", s.Separation),
		})
	}
	printer.Header("Top component/cluster separations (n=%s)", strconv.Itoa(top))
	printer.Table([]string{"component", "cluster", "median", "IQR", "separation"}, rows)

	return nil
}
