// Package commands wires the cellsweep CLI: loading snapshots, running
// the variable-gene parameter sweep, comparing cluster structures,
// exploring per-PC distributions, and re-clustering with components
// excluded.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/gilchrisn/scrna-analysis-service/pkg/sweep"
)

var (
	configFile string
	logLevel   string
	randomSeed int64
	outputDir  string
)

var rootCmd = &cobra.Command{
	Use:   "cellsweep",
	Short: "Clustering sensitivity analysis for single-cell RNA-seq data",
	Long: `cellsweep loads a serialized single-cell expression dataset and probes
how sensitive graph-based clustering is to the number of variable genes
used and to the inclusion of individual principal components.

The sweep re-runs feature selection, scaling, PCA, embedding, neighbor
graph construction, and community clustering for each candidate gene
count, then compares the resulting cluster structures pairwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file with parameter overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().Int64Var(&randomSeed, "seed", 0, "global random seed for all stochastic steps")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "figures", "directory for rendered figures and saved snapshots")
}

// buildConfig assembles the sweep configuration from defaults, the
// optional config file, and global flag overrides, in that order.
func buildConfig() (*sweep.Config, error) {
	cfg := sweep.NewConfig()
	if configFile != "" {
		if err := cfg.LoadFromFile(configFile); err != nil {
			return nil, err
		}
	}
	cfg.Set("logging.level", logLevel)
	cfg.Set("random_seed", randomSeed)
	return cfg, nil
}
