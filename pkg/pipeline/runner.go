package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/rrthin/pkg/cache"
	errs "github.com/matzehuels/rrthin/pkg/errors"
	"github.com/matzehuels/rrthin/pkg/observability"
	"github.com/matzehuels/rrthin/pkg/rrgraph"
	"github.com/matzehuels/rrthin/pkg/thin"
)

// Runner encapsulates job execution with caching.
// Both the thin and batch commands use it, so a graph cached by one is
// reused by the other.
//
// The Runner is stateless except for the cache and logger - it keeps no
// graphs between jobs. Multiple goroutines can safely use the same Runner
// with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration // lifetime of cached graph snapshots
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		TTL:    DefaultGraphTTL,
	}
}

// Execute runs the complete load → index → sample → edit → serialize job.
// The returned Result is never nil; on error its State is StateFailed and
// no output file exists. A panic inside the job is returned as an
// INTERNAL_ERROR so sibling jobs on other goroutines keep running.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{State: StatePending}
	job := opts.Job()
	hooks := observability.Pipeline()

	start := time.Now()
	hooks.OnJobStart(ctx, job)
	err := r.runRecovered(ctx, opts, job, result)
	if err != nil {
		result.FailedAt = result.State
		result.State = StateFailed
		result.Output = ""
	}
	hooks.OnJobComplete(ctx, job, result.Stats.TotalRemoved(), time.Since(start), err)
	return result, err
}

func (r *Runner) runRecovered(ctx context.Context, opts Options, job observability.Job, result *Result) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errs.New(errs.ErrCodeInternal, "%s job panicked in state %s: %v", opts.Circuit, result.State, v)
		}
	}()
	return r.run(ctx, opts, job, result)
}

func (r *Runner) run(ctx context.Context, opts Options, job observability.Job, result *Result) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	logger := r.Logger.With("circuit", opts.Circuit, "edge_rate", opts.EdgeRate)
	if opts.Mux {
		logger = logger.With("mux_rate", opts.MuxRate)
	}
	hooks := observability.Pipeline()
	stats := &result.Stats
	advance := func(state State, elapsed *time.Duration, since time.Time) {
		*elapsed = time.Since(since)
		result.State = state
		hooks.OnStage(ctx, job, state.String(), *elapsed)
	}

	// Stage 1: Load
	t := time.Now()
	g, hit, err := r.LoadWithCacheInfo(ctx, opts.Input, opts.Refresh)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	result.CacheHit = hit
	stats.Nodes = g.NodeCount()
	stats.Edges = g.EdgeCount()
	advance(StateLoaded, &stats.LoadTime, t)
	logger.Debug("loaded graph",
		"input", opts.Input,
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"cached", hit,
		"duration", stats.LoadTime)

	// Stage 2: Index
	t = time.Now()
	idx := thin.NewSpatialIndex(g)
	stats.InterDie = idx.InterDie()
	advance(StateIndexed, &stats.IndexTime, t)
	logger.Debug("indexed inter-die edges",
		"inter_die", stats.InterDie,
		"tiles", len(idx.Tiles()),
		"duration", stats.IndexTime)

	// Stage 3: Sample
	t = time.Now()
	work := g
	removal := thin.SelectTiles(g, idx, thin.NewSampler(opts.baseSeed()), opts.EdgeRate)
	stats.Removed = removal.Len()
	if opts.Mux {
		// The fan groups are those of the base-thinned graph.
		base, err := thin.Remove(g, removal)
		if err != nil {
			return fmt.Errorf("sample: %w", err)
		}
		baseIdx := thin.NewSpatialIndex(base)
		fan := thin.NewFanIndex(base, baseIdx.Endpoints())
		work = base
		removal = thin.SelectMux(base, baseIdx, fan, thin.NewSampler(opts.muxSeed()), opts.MuxRate)
		stats.MuxRemoved = removal.Len()
	}
	advance(StateSampled, &stats.SampleTime, t)
	logger.Debug("sampled edges",
		"removed", stats.Removed,
		"mux_removed", stats.MuxRemoved,
		"duration", stats.SampleTime)

	// Stage 4: Edit
	t = time.Now()
	out, err := thin.Remove(work, removal)
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	advance(StateEdited, &stats.EditTime, t)
	logger.Debug("removed edges", "edges", out.EdgeCount(), "duration", stats.EditTime)

	// Stage 5: Serialize
	t = time.Now()
	path := opts.OutputPath()
	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			return fmt.Errorf("write: create output dir: %w", err)
		}
	}
	if err := rrgraph.WriteFile(out, path); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	advance(StateSerialized, &stats.WriteTime, t)

	result.Output = path
	result.State = StateDone
	logger.Info("wrote thinned graph",
		"output", path,
		"removed", stats.TotalRemoved(),
		"duration", stats.LoadTime+stats.IndexTime+stats.SampleTime+stats.EditTime+stats.WriteTime)
	return nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
