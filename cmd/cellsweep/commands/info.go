package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/scrna-analysis-service/internal/printer"
	"github.com/gilchrisn/scrna-analysis-service/pkg/dataset"
)

var infoCmd = &cobra.Command{
	Use:   "info <snapshot>",
	Short: "Summarize a dataset snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ds, err := dataset.Load(args[0])
	if err != nil {
		return printer.Fail("failed to load snapshot: %v", err)
	}

	printer.Header("Snapshot %s", args[0])
	rows := [][]string{
		{"cells", strconv.Itoa(ds.NCells())},
		{"genes", strconv.Itoa(ds.NGenes())},
		{"normalized", strconv.FormatBool(ds.Norm != nil)},
		{"variable genes", strconv.Itoa(len(ds.VariableGenes))},
	}

	obsCols := make([]string, 0, len(ds.Obs))
	for name := range ds.Obs {
		obsCols = append(obsCols, name)
	}
	sort.Strings(obsCols)
	rows = append(rows, []string{"obs columns", strings.Join(obsCols, ", ")})

	reductions := make([]string, 0, len(ds.Reductions))
	for name, red := range ds.Reductions {
		_, comps := red.Dims()
		reductions = append(reductions, fmt.Sprintf("%s(%d)", name, comps))
	}
	sort.Strings(reductions)
	rows = append(rows, []string{"reductions", strings.Join(reductions, ", ")})

	printer.Table([]string{"field", "value"}, rows)

	for _, name := range obsCols {
		levels, err := ds.ObsLevels(name)
		if err != nil {
			continue
		}
		printer.Info("obs %q: %d levels", name, len(levels))
	}

	return nil
}
