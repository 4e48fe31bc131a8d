// Package batch plans and runs thinning jobs over many circuits and rates.
//
// A batch is the Cartesian product of circuits and rate configurations:
// every circuit is thinned at every edge rate and, for the MUX variant, at
// every (edge rate, mux rate) pair. [Run] skips jobs whose output already
// exists, so an interrupted batch resumes where it stopped, and executes the
// rest on a bounded pool of worker goroutines. A failing job is reported and
// never stops its siblings.
//
//	jobs := batch.Plan(circuits, batch.Matrix{EdgeRates: []float64{0.05, 0.5}})
//	report, err := batch.Run(ctx, runner, jobs, batch.Options{OutputDir: "rr_graphs"})
//	if err == nil {
//	    err = report.Err()
//	}
package batch
