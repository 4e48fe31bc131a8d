// Package pkg provides the libraries behind rrthin, a tool that thins the
// inter-die connections of a routing-resource graph.
//
// # Overview
//
// Multi-die FPGA studies sweep how routability degrades as the number of
// wires crossing a die boundary shrinks. rrthin takes the rr_graph.xml a
// place-and-route flow emitted for a circuit, removes a seeded random share
// of the inter-die edges, and writes a new rr_graph that the router can load
// in place of the original. The pkg directory is organized by stage:
//
//  1. [rrgraph] - Graph model, streaming XML loader and writer, snapshots
//  2. [thin] - Spatial index, sampler, tile and MUX selection, edge removal
//  3. [pipeline] - One job: load, index, sample, edit, serialize
//  4. [batch] - Circuit discovery, job planning, worker pool, resume
//  5. [config] - TOML configuration layered with environment overrides
//  6. [cache] - Parsed-graph snapshots on disk or in Redis
//  7. [analyze] - Per-layer and per-tile interconnect statistics
//
// # Architecture
//
// The data flow of a single thinning job:
//
//	rr_graph.xml
//	     ↓
//	[rrgraph] Load (or [cache] snapshot hit)
//	     ↓
//	[thin] NewSpatialIndex → SelectTiles / SelectMux → Remove
//	     ↓
//	[rrgraph] WriteFile (atomic rename)
//	     ↓
//	rr_graph_<circuit>_<percent>[_mux_<percent>].xml
//
// # Quick Start
//
// Thin one graph by half:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/rrthin/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	defer runner.Close()
//
//	res, err := runner.Execute(context.Background(), pipeline.Options{
//	    Circuit:   "dart",
//	    Input:     "dart.blif/common/rr_graph.xml",
//	    OutputDir: "rr_graphs",
//	    EdgeRate:  0.5,
//	    Seed:      pipeline.DefaultSeed,
//	})
//
// Sweep a whole rate matrix over every circuit of a run directory:
//
//	cfg, _ := config.Load("rrthin.toml")
//	circuits, _ := cfg.ResolveCircuits()
//	jobs := batch.Plan(circuits, cfg.Matrix())
//	report, err := batch.Run(ctx, runner, jobs, batch.Options{OutputDir: cfg.OutputDir})
//
// # Determinism
//
// Every job derives its random stream from the configured seed, the circuit
// name and its rates, so a job produces the same output bytes regardless of
// which worker runs it or in which order the batch schedules it.
//
// # Observability
//
// Progress and cache events are published through [observability] hooks.
// The CLI registers a live job table on them; libraries never import UI code.
//
// [rrgraph]: https://pkg.go.dev/github.com/matzehuels/rrthin/pkg/rrgraph
// [thin]: https://pkg.go.dev/github.com/matzehuels/rrthin/pkg/thin
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/rrthin/pkg/pipeline
// [batch]: https://pkg.go.dev/github.com/matzehuels/rrthin/pkg/batch
// [config]: https://pkg.go.dev/github.com/matzehuels/rrthin/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/rrthin/pkg/cache
// [analyze]: https://pkg.go.dev/github.com/matzehuels/rrthin/pkg/analyze
// [observability]: https://pkg.go.dev/github.com/matzehuels/rrthin/pkg/observability
package pkg
