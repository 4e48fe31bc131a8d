package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rrthin/pkg/batch"
	"github.com/matzehuels/rrthin/pkg/buildinfo"
	"github.com/matzehuels/rrthin/pkg/config"
)

// defaultConfigFile is read when --config is not given and the file exists.
const defaultConfigFile = "rrthin.toml"

// batchOpts holds the command-line flags for the batch command.
type batchOpts struct {
	configPath string
	workers    int
	outputDir  string
	seed       uint64
	dryRun     bool
	tui        bool
	refresh    bool
}

// batchCommand creates the batch command.
func (c *CLI) batchCommand() *cobra.Command {
	var opts batchOpts

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Thin every configured circuit at every configured rate",
		Long: `Run the circuits × rates matrix described by a TOML file (rrthin.toml by
default). Circuits default to every run directory under input_dir. Jobs whose
output already exists are skipped, so an interrupted batch can be restarted.

RRTHIN_* environment variables (and a .env file) override the file; flags
override both.`,
		Example: `  rrthin batch --config titan.toml -j 16
  rrthin batch --dry-run
  rrthin batch --tui`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := loadBatchConfig(cmd, opts)
			if err != nil {
				return err
			}
			circuits, err := cfg.ResolveCircuits()
			if err != nil {
				return err
			}
			jobs := batch.Plan(circuits, cfg.Matrix())
			logger.Debug("planned batch",
				"circuits", len(circuits),
				"edge_rates", formatRates(cfg.EdgeRates),
				"mux_edge_rates", formatRates(cfg.Mux.EdgeRates),
				"mux_rates", formatRates(cfg.Mux.MuxRates))

			if opts.dryRun {
				printPlan(jobs, cfg.OutputDir)
				return nil
			}
			if len(jobs) == 0 {
				printWarning("No circuits found under %s", cfg.InputDir)
				return nil
			}

			seed, chosen := cfg.ResolveSeed()
			if chosen {
				logger.Info("chose random seed", "seed", seed)
			}
			logger.Info("rrthin "+buildinfo.Short(), "config", opts.configPath, "output_dir", cfg.OutputDir)

			runner := c.newRunner(ctx, cfg.CacheOptions(), cfg.Cache.TTL.Duration)
			defer runner.Close()

			bo := batch.Options{
				OutputDir: cfg.OutputDir,
				Workers:   cfg.Workers,
				Seed:      seed,
				Refresh:   opts.refresh,
			}
			var report *batch.Report
			if opts.tui {
				report, err = runWithTable(ctx, runner, jobs, bo)
			} else {
				report, err = batch.Run(ctx, runner, jobs, bo)
			}
			if report != nil {
				printReport(report)
			}
			if err != nil {
				return err
			}
			return report.Err()
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (default ./rrthin.toml if present)")
	cmd.Flags().IntVarP(&opts.workers, "jobs", "j", 0, "number of parallel jobs (overrides workers)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "output directory (overrides output_dir)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed (overrides seed)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the job plan without running it")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show a live job table")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-parse graphs even if they are cached")

	return cmd
}

// loadBatchConfig layers flags over the file and environment.
func loadBatchConfig(cmd *cobra.Command, opts batchOpts) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg, err := config.Parse(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("jobs") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("output") {
		cfg.OutputDir = opts.outputDir
	}
	if flags.Changed("seed") {
		seed := opts.seed
		cfg.Seed = &seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
