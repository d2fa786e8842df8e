package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"LinkClassifier/internal/app"
	"LinkClassifier/internal/config"
	"LinkClassifier/internal/logging"
)

var (
	flagConfig    string
	flagThreshold float64
	flagListIDs   []int

	flagInputList int
	flagDryRun    bool
	flagApplyAll  bool
	flagOutput    string
)

var rootCmd = &cobra.Command{
	Use:   "linkclassifier",
	Short: "Classify LinkAce bookmarks into lists with a local LLM",
	Long: `linkclassifier reads reference bookmark lists from a LinkAce
instance, asks an Ollama model where a URL belongs, and either serves
classifications over HTTP or applies them to an input list in batch.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the classification HTTP service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return app.New(cfg, logging.New(cfg.Logging.Level)).Serve(ctx)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Classify an input list and apply assignments in one batch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("input-list") {
			cfg.Batch.InputListID = flagInputList
		}
		if cmd.Flags().Changed("dry-run") {
			cfg.Batch.DryRun = flagDryRun
		}
		if cmd.Flags().Changed("apply-all") {
			cfg.Batch.ApplyAll = flagApplyAll
		}
		if cmd.Flags().Changed("output") {
			cfg.Batch.OutputFile = flagOutput
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return app.New(cfg, logging.New(cfg.Logging.Level)).RunBatch(ctx)
	},
}

// loadConfig merges CLI flags over file and environment settings.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}

	if cmd.Flags().Changed("threshold") {
		cfg.Classify.Threshold = flagThreshold
	}
	if cmd.Flags().Changed("lists") {
		cfg.Classify.ListIDs = flagListIDs
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().Float64Var(&flagThreshold, "threshold", 0.8, "Minimum confidence for a classification")
	rootCmd.PersistentFlags().IntSliceVar(&flagListIDs, "lists", nil, "Reference list IDs used as classification targets")

	runCmd.Flags().IntVar(&flagInputList, "input-list", 0, "List holding the links to classify")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Classify without modifying any list")
	runCmd.Flags().BoolVar(&flagApplyAll, "apply-all", false, "Assign to every list above the threshold, not just the top one")
	runCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write batch results to a .csv or .json file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
