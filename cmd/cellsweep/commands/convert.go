package commands

import (
	"github.com/spf13/cobra"

	"github.com/gilchrisn/scrna-analysis-service/internal/printer"
	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
)

var convertCmd = &cobra.Command{
	Use:   "convert <counts.tsv> <snapshot>",
	Short: "Build a dataset snapshot from a tab-separated count matrix export",
	Args:  cobra.ExactArgs(2),
	RunE:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ds, err := dataset.ReadCountsTSV(args[0])
	if err != nil {
		return printer.Fail("failed to read counts: %v", err)
	}
	if err := dataset.Save(ds, args[1]); err != nil {
		return printer.Fail("failed to save snapshot: %v", err)
	}
	printer.Success("Wrote %d cells x %d genes to %s", ds.NCells(), ds.NGenes(), args[1])
	return nil
}
