package cli

import (
	"math/rand/v2"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rrthin/pkg/batch"
	"github.com/matzehuels/rrthin/pkg/cache"
	errs "github.com/matzehuels/rrthin/pkg/errors"
)

// thinOpts holds the command-line flags for the thin command.
type thinOpts struct {
	circuit   string
	rates     []float64
	muxRates  []float64
	outputDir string
	workers   int
	seed      uint64
	noCache   bool
	refresh   bool
}

// thinCommand creates the thin command for a single source graph.
func (c *CLI) thinCommand() *cobra.Command {
	opts := thinOpts{outputDir: "rr_graphs", workers: runtime.NumCPU()}

	cmd := &cobra.Command{
		Use:   "thin <rr_graph.xml>",
		Short: "Remove a fraction of the inter-die edges of one graph",
		Long: `Thin one rr_graph.xml at every --rate. With --mux-rate, each rate is
combined with each mux rate and the switch fan-in/fan-out around inter-die
edges is thinned as well; only the MUX outputs are written then.

Outputs are named rr_graph_<circuit>_<pct>.xml (or ..._mux_<pct>.xml) and
existing outputs are left untouched.`,
		Example: `  rrthin thin runs/dart.blif/common/rr_graph.xml --rate 0.05,0.5,0.9
  rrthin thin rr_graph.xml --circuit des90 --rate 0.5 --mux-rate 0.05,0.1 --seed 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			if opts.circuit == "" {
				opts.circuit = circuitFromPath(args[0])
			}
			if err := errs.ValidateCircuitName(opts.circuit); err != nil {
				return err
			}
			if len(opts.rates) == 0 {
				return errs.New(errs.ErrCodeInvalidRate, "at least one --rate is required")
			}
			if !cmd.Flags().Changed("seed") {
				opts.seed = rand.Uint64()
				logger.Info("chose random seed", "seed", opts.seed)
			}

			var m batch.Matrix
			if len(opts.muxRates) > 0 {
				m = batch.Matrix{MuxEdgeRates: opts.rates, MuxRates: opts.muxRates}
			} else {
				m = batch.Matrix{EdgeRates: opts.rates}
			}
			jobs := batch.Plan([]batch.Circuit{{Name: opts.circuit, Input: args[0]}}, m)

			backend := cache.BackendFile
			if opts.noCache {
				backend = cache.BackendNone
			}
			runner := c.newRunner(ctx, cache.Options{Backend: backend}, 0)
			defer runner.Close()

			report, err := batch.Run(ctx, runner, jobs, batch.Options{
				OutputDir: opts.outputDir,
				Workers:   opts.workers,
				Seed:      opts.seed,
				Refresh:   opts.refresh,
			})
			if report != nil {
				for _, out := range report.Outputs {
					printFile(out)
				}
				printReport(report)
			}
			if err != nil {
				return err
			}
			return report.Err()
		},
	}

	cmd.Flags().StringVar(&opts.circuit, "circuit", "", "circuit name used in output names (default: inferred from the path)")
	cmd.Flags().Float64SliceVarP(&opts.rates, "rate", "r", nil, "inter-die edge removal rate(s) in [0,1]")
	cmd.Flags().Float64SliceVar(&opts.muxRates, "mux-rate", nil, "fan-in/fan-out removal rate(s) in [0,1]")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", opts.outputDir, "output directory")
	cmd.Flags().IntVarP(&opts.workers, "jobs", "j", opts.workers, "number of parallel jobs")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed (random when not set)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the parsed-graph cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-parse the graph even if it is cached")

	return cmd
}

// circuitFromPath infers a circuit name from a VTR run layout such as
// runs/dart.blif/common/rr_graph.xml, falling back to the file's stem.
func circuitFromPath(path string) string {
	dir := filepath.Dir(filepath.Clean(path))
	for dir != "." && dir != string(filepath.Separator) {
		base := filepath.Base(dir)
		if name, _, ok := strings.Cut(base, "."); ok && name != "" {
			return name
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// formatRates renders rates for log lines, e.g. "5%,50%".
func formatRates(rates []float64) string {
	parts := make([]string, len(rates))
	for i, r := range rates {
		parts[i] = rateCell(r)
	}
	return strings.Join(parts, ",")
}
