// Package main provides the CLI entrypoint for hostmetrics.
//
// hostmetrics reads the bowtie2 report that MultiQC writes into its data
// directory and summarises, per sample, how many reads were kept (not mapped
// to the host genome) and how many were discarded (mapped).
package main

import (
	"fmt"
	"os"
	"strings"

	"hostmetrics/internal/config"
	"hostmetrics/internal/logging"
	"hostmetrics/internal/pipeline"
	"hostmetrics/internal/report"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	// Flags
	dataDir    string
	singleEnd  bool
	output     string
	configPath string
	summary    bool
	verbose    bool

	// Resolved at PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hostmetrics",
	Short: "Summarise bowtie2 host removal metrics from MultiQC data",
	Long: `Creates a tab-separated table of bowtie2 host removal metrics from the
YAML files MultiQC writes into its data directory.

For every sample the table lists the reads that were not mapped to the host
(kept) and the sum of uniquely and multi-mapped reads (discarded).

Example:
  hostmetrics --multiqc_data_dir multiqc_data
  hostmetrics --single_end -o results/host_removal_metrics.tsv`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = resolveConfig(cmd)
		if err != nil {
			return err
		}

		logger, err = logging.New(logging.Options{
			Level:   cfg.Logging.Level,
			Format:  cfg.Logging.Format,
			Verbose: verbose,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runExtract,
}

func init() {
	rootCmd.Flags().StringVarP(&dataDir, "multiqc_data_dir", "d", config.DefaultDataDir,
		"Directory containing the YAML files for each module, as generated by MultiQC")
	rootCmd.Flags().BoolVarP(&singleEnd, "single_end", "s", false, "Input is single-end reads")
	rootCmd.Flags().StringVarP(&output, "output", "o", config.DefaultOutput, "Output TSV path")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Optional YAML configuration file")
	rootCmd.Flags().BoolVar(&summary, "summary", false, "Also print the table to stdout")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// --multiqc-data-dir and --single-end are accepted too.
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "-", "_"))
	})
}

// resolveConfig layers defaults, config file, environment and flags, in that
// order of precedence.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("multiqc_data_dir") {
		c.DataDir = dataDir
	}
	if flags.Changed("single_end") {
		c.SingleEnd = singleEnd
	}
	if flags.Changed("output") {
		c.Output = output
	}
	if flags.Changed("summary") {
		c.Summary = summary
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger.Debug("Starting extraction",
		zap.String("data_dir", cfg.DataDir),
		zap.Bool("single_end", cfg.SingleEnd),
		zap.String("output", cfg.Output))

	res, err := pipeline.Run(cfg, logger)
	if err != nil {
		return err
	}

	if !res.Written {
		logger.Warn("No metrics extracted, no output written", zap.String("data_dir", cfg.DataDir))
		return nil
	}
	if cfg.Summary {
		fmt.Fprintln(cmd.OutOrStdout(), report.Render(res.Table))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
