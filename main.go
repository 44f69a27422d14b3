package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"price-paid-etl/config"
	"price-paid-etl/models"
	"price-paid-etl/pipeline"
	"price-paid-etl/services"
	"price-paid-etl/utils"
)

var rootFlags struct {
	configPath string
	batchSize  int
	noDB       bool
	logLevel   string
}

// Set by PersistentPreRunE for every subcommand.
var (
	cfg    *config.Config
	logger *utils.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ppetl",
	Short: "Load the HM Land Registry price paid extract into PostgreSQL",
	Long: `ppetl downloads the monthly price paid extract, converts it into a tabular
file, cleans it, loads it into PostgreSQL and writes the summary reports.

Run the whole pipeline with "ppetl run" or a single stage with its own command.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run fetch, convert, transform, load and report in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := pipeline.New(cfg, logger).Run(cmd.Context())
		if s != nil {
			pipeline.PrintSummary(cmd.OutOrStdout(), s)
		}
		return err
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the raw extract unless it is already on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := pipeline.New(cfg, logger).Fetch(cmd.Context())
		return err
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert the raw extract into the tabular file",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := pipeline.New(cfg, logger).Convert(cmd.Context())
		return err
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Clean the tabular file and save the cleaned dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := pipeline.New(cfg, logger).Transform(cmd.Context())
		return err
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Clean the tabular file and insert it into PostgreSQL",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.DBInsertion {
			logger.Warn("DB insertion disabled, nothing to load")
			return nil
		}
		r := pipeline.New(cfg, logger)
		data, err := r.Transform(cmd.Context())
		if err != nil {
			return err
		}
		res, err := r.Load(cmd.Context(), data)
		if err != nil {
			return err
		}
		printLoad(res)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the report files from the stored transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := pipeline.New(cfg, logger).Report(cmd.Context())
		if err != nil {
			return err
		}
		services.PrintReport(cmd.OutOrStdout(), res)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and seed the lookup tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline.New(cfg, logger).Migrate(cmd.Context())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.configPath, "config", "c", "", "YAML config file (environment variables still win)")
	pf.IntVar(&rootFlags.batchSize, "batch-size", 0, "rows per tabular batch (overrides BATCH_SIZE)")
	pf.BoolVar(&rootFlags.noDB, "no-db", false, "skip the database stages")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(runCmd, fetchCmd, convertCmd, transformCmd, loadCmd, reportCmd, migrateCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(rootFlags.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("batch-size") {
		cfg.BatchSize = rootFlags.batchSize
	}
	if flags.Changed("no-db") && rootFlags.noDB {
		cfg.DBInsertion = false
		cfg.GenerateReports = false
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = rootFlags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = utils.NewLoggerWith(utils.LoggerOptions{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Out:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	logger.Info("Config: batch size: %d | chunk size: %d | DB insertion: %t | reports: %t | source: %s",
		cfg.BatchSize, cfg.ChunkSize, cfg.DBInsertion, cfg.GenerateReports, cfg.SourceURL)
	return nil
}

func printLoad(res *models.LoadResult) {
	fmt.Printf("  Loaded: %d attempted | %d inserted | %d already stored | %d failed\n\n",
		res.Attempted, res.Inserted, res.Conflicts, res.Failed)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// setup may fail before the configured logger exists
		if logger == nil {
			logger = utils.NewLogger()
		}
		logger.Error("%v", err)
		stop()
		os.Exit(1)
	}
}
