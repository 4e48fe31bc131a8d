// Package pipeline runs one thinning job: load, index, sample, edit, write.
//
// A job reads one rr_graph.xml, removes a fraction of its inter-die edges
// and writes the thinned graph under a name that encodes the rates. The
// batch orchestrator and the single-file CLI command both go through the
// same [Runner], so cache behavior, seeding and logging are identical for
// every entry point.
//
// # Stages
//
//  1. Load: parse the source graph, or restore its snapshot from the cache
//  2. Index: bucket the inter-die edges by tile
//  3. Sample: pick Count(n, rate) edges per tile and, for MUX jobs, per
//     fan-in/fan-out group of every inter-die endpoint
//  4. Edit: drop the sampled edges in one pass
//  5. Serialize: splice the source file into a temp file and rename it
//
// Each stage advances the job's [State]. Any error moves it to
// [StateFailed] and no output file is left behind.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Circuit:   "dart",
//	    Input:     "runs/dart.blif/common/rr_graph.xml",
//	    OutputDir: "rr_graphs",
//	    EdgeRate:  0.5,
//	    Seed:      42,
//	})
//	fmt.Println(result.Output, result.Stats.Removed)
package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/matzehuels/rrthin/pkg/cache"
	errs "github.com/matzehuels/rrthin/pkg/errors"
	"github.com/matzehuels/rrthin/pkg/observability"
	"github.com/matzehuels/rrthin/pkg/rrgraph"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultSeed is used by callers that want reproducible runs without
	// choosing a seed.
	DefaultSeed uint64 = 42

	// DefaultGraphTTL is how long a parsed-graph snapshot stays cached.
	// Keys change whenever the source file does, so the TTL only bounds
	// disk or Redis usage.
	DefaultGraphTTL = 7 * 24 * time.Hour
)

// =============================================================================
// Types
// =============================================================================

// Options configures one thinning job.
type Options struct {
	Circuit   string  `json:"circuit"`
	Input     string  `json:"input"`
	OutputDir string  `json:"output_dir"`
	EdgeRate  float64 `json:"edge_rate"`
	MuxRate   float64 `json:"mux_rate,omitempty"`
	Mux       bool    `json:"mux,omitempty"`
	Seed      uint64  `json:"seed"`

	// Refresh bypasses the graph cache for reading and writing.
	Refresh bool `json:"refresh,omitempty"`
}

// State is the position of a job in its lifecycle.
type State int

const (
	StatePending State = iota
	StateLoaded
	StateIndexed
	StateSampled
	StateEdited
	StateSerialized
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StatePending:    "Pending",
	StateLoaded:     "Loaded",
	StateIndexed:    "Indexed",
	StateSampled:    "Sampled",
	StateEdited:     "Edited",
	StateSerialized: "Serialized",
	StateDone:       "Done",
	StateFailed:     "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Result describes a finished (or failed) job.
type Result struct {
	// Output is the path of the written graph. Empty unless State is Done.
	Output string

	// State is the last state the job reached.
	State State

	// FailedAt is the last state completed before a failure.
	FailedAt State

	// Stats contains sizes and timings.
	Stats Stats

	// CacheHit reports whether the source graph came from the cache.
	CacheHit bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Nodes      int
	Edges      int // edges in the source graph
	InterDie   int // inter-die edges in the source graph
	Removed    int // inter-die edges removed by the tile pass
	MuxRemoved int // fan-in/fan-out edges removed by the MUX pass
	LoadTime   time.Duration
	IndexTime  time.Duration
	SampleTime time.Duration
	EditTime   time.Duration
	WriteTime  time.Duration
}

// TotalRemoved returns the number of edges missing from the output.
func (s Stats) TotalRemoved() int { return s.Removed + s.MuxRemoved }

// =============================================================================
// Options Methods
// =============================================================================

// Validate checks the fields a job needs before it touches the filesystem.
func (o *Options) Validate() error {
	if err := errs.ValidateCircuitName(o.Circuit); err != nil {
		return err
	}
	if o.Input == "" {
		return errs.New(errs.ErrCodeMissingInput, "no input graph for circuit %s", o.Circuit)
	}
	if err := errs.ValidateRate("edge_rate", o.EdgeRate); err != nil {
		return err
	}
	if o.Mux {
		if err := errs.ValidateRate("mux_rate", o.MuxRate); err != nil {
			return err
		}
	}
	return nil
}

// OutputName returns the file name the job writes.
func (o *Options) OutputName() string {
	if o.Mux {
		return rrgraph.MuxOutputName(o.Circuit, o.EdgeRate, o.MuxRate)
	}
	return rrgraph.OutputName(o.Circuit, o.EdgeRate)
}

// OutputPath returns the full path the job writes.
func (o *Options) OutputPath() string {
	return filepath.Join(o.OutputDir, o.OutputName())
}

// Job returns the identity reported to observability hooks.
func (o *Options) Job() observability.Job {
	return observability.Job{
		Circuit:  o.Circuit,
		EdgeRate: o.EdgeRate,
		MuxRate:  o.MuxRate,
		Mux:      o.Mux,
		Output:   o.OutputPath(),
	}
}

// sourceKeyOpts returns the cache identity of a source file.
func sourceKeyOpts(path string, size int64, modTime time.Time) cache.SourceKeyOpts {
	return cache.SourceKeyOpts{
		Path:    path,
		Size:    size,
		ModTime: modTime,
		Version: rrgraph.SnapshotVersion,
	}
}
