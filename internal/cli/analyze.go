package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rrthin/pkg/analyze"
	"github.com/matzehuels/rrthin/pkg/cache"
)

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var (
		output  string
		asJSON  bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <rr_graph.xml>",
		Short: "Report inter-die connectivity per tile",
		Long: `Count the inter-die connections of every tile together with the fan-in
of their source nodes and the fan-out of their sink nodes (split by L4 and
L16 channel segments), and the per-layer averages over the interior tiles.
Running it on a thinned graph shows what a rate actually removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			backend := cache.BackendFile
			if noCache {
				backend = cache.BackendNone
			}
			runner := c.newRunner(ctx, cache.Options{Backend: backend}, 0)
			defer runner.Close()

			sw := startStopwatch(logger)
			spin := newSpinnerWithContext(ctx, "Loading "+args[0])
			spin.Start()
			g, hit, err := runner.LoadWithCacheInfo(ctx, args[0], false)
			if err != nil {
				spin.StopWithError("Failed to load " + args[0])
				return err
			}
			spin.SetMessage("Indexing inter-die edges")
			report := analyze.Analyze(g)
			spin.Stop()
			sw.done("analyzed graph", "inter_die", report.InterDie, "tiles", len(report.Tiles))
			logger.Debug("graph source", "cached", hit, "nodes", report.Nodes, "edges", report.Edges)

			var w io.Writer = os.Stdout
			var bw *bufio.Writer
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				bw = bufio.NewWriter(f)
				w = bw
			}

			if asJSON {
				err = report.WriteJSON(w)
			} else {
				err = report.WriteText(w)
			}
			if err == nil && bw != nil {
				err = bw.Flush()
			}
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if output != "" {
				printSuccess("Wrote report")
				printFile(output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of text")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the parsed-graph cache")

	return cmd
}
