package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/rrthin/pkg/buildinfo"
	"github.com/matzehuels/rrthin/pkg/cache"
	"github.com/matzehuels/rrthin/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "rrthin"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "rrthin removes inter-die edges from FPGA routing-resource graphs",
		Long: `rrthin rewrites VPR rr_graph.xml files to model a 3D FPGA with fewer
inter-die connections. Edges that cross layers are bucketed by tile and a
fixed fraction of every tile's edges is removed; the MUX variant also thins
the switch fan-in and fan-out around every inter-die edge.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.thinCommand())
	root.AddCommand(c.batchCommand())
	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.cacheCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. Without a reachable
// cache backend the runner still works, uncached.
func (c *CLI) newRunner(ctx context.Context, opts cache.Options, ttl time.Duration) *pipeline.Runner {
	store, err := cache.Open(ctx, opts)
	if err != nil {
		c.Logger.Warn("graph cache disabled", "backend", opts.Backend, "err", err)
		store = cache.NewNullCache()
	}
	r := pipeline.NewRunner(store, opts.Keyer(), c.Logger)
	if ttl > 0 {
		r.TTL = ttl
	}
	return r
}
